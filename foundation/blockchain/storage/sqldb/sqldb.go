// Package sqldb implements the ability to read and write blocks to a SQL
// database through gorm. Postgres is used in production and SQLite is
// available for single node installs and tests.
package sqldb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Set of supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the required properties to use the database.
type Config struct {
	Driver string
	DSN    string
}

// blockRow is the row layout of the blocks table.
type blockRow struct {
	Index        uint64 `gorm:"column:index;primaryKey;autoIncrement:false"`
	Transactions string `gorm:"column:transactions;type:text;not null"`
	Timestamp    uint64 `gorm:"column:timestamp;not null"`
	PreviousHash string `gorm:"column:previous_hash;not null"`
	Nonce        uint64 `gorm:"column:nonce;not null"`
	Hash         string `gorm:"column:hash;not null"`
}

// TableName implements the gorm tabler interface.
func (blockRow) TableName() string {
	return "blocks"
}

// SQLDB represents the serialization implementation for reading and storing
// blocks in a SQL database. This implements the database.Storage interface.
type SQLDB struct {
	dialector gorm.Dialector

	mu sync.Mutex
	db *gorm.DB
}

// New validates the configuration and constructs a SQLDB value for use. The
// connection is opened by Initialize.
func New(cfg Config) (*SQLDB, error) {
	if cfg.DSN == "" {
		return nil, database.NewConfigurationError("sql store requires a dsn")
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, database.NewConfigurationError(fmt.Sprintf("unknown sql driver %q", cfg.Driver))
	}

	return &SQLDB{dialector: dialector}, nil
}

// Initialize opens the connection and makes sure the blocks table exists.
func (s *SQLDB) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	db, err := gorm.Open(s.dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return database.NewConnectionError("sqldb: open", err)
	}

	if err := db.AutoMigrate(&blockRow{}); err != nil {
		return database.NewConnectionError("sqldb: migrate", err)
	}

	s.db = db

	return nil
}

// Close closes the underlying connection pool.
func (s *SQLDB) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil

	return sqlDB.Close()
}

// Write inserts the block as a new row. The index is the primary key so a
// second write of the same index fails.
func (s *SQLDB) Write(block database.Block) error {
	trans, err := database.EncodeTrans(block.Trans)
	if err != nil {
		return err
	}

	row := blockRow{
		Index:        block.Header.Index,
		Transactions: trans,
		Timestamp:    block.Header.TimeStamp,
		PreviousHash: block.Header.PrevBlockHash,
		Nonce:        block.Header.Nonce,
		Hash:         block.Hash,
	}

	db, err := s.conn()
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&blockRow{}).Where(map[string]any{"index": row.Index}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return database.ErrIndexExists
		}

		return tx.Create(&row).Error
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrIndexExists), errors.Is(err, gorm.ErrDuplicatedKey):
		return database.ErrIndexExists
	}

	return database.NewConnectionError("sqldb: write", err)
}

// ReadAll returns every block ordered by index.
func (s *SQLDB) ReadAll() ([]database.Block, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var rows []blockRow
	if err := db.Order(byIndex(false)).Find(&rows).Error; err != nil {
		return nil, database.NewConnectionError("sqldb: read", err)
	}

	blocks := make([]database.Block, 0, len(rows))
	for _, row := range rows {
		block, err := toBlock(row)
		if err != nil {
			return nil, fmt.Errorf("blk[%d]: %w", row.Index, err)
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// MaxIndex returns the highest stored index.
func (s *SQLDB) MaxIndex() (uint64, bool, error) {
	db, err := s.conn()
	if err != nil {
		return 0, false, err
	}

	var rows []blockRow
	if err := db.Order(byIndex(true)).Limit(1).Find(&rows).Error; err != nil {
		return 0, false, database.NewConnectionError("sqldb: max index", err)
	}

	if len(rows) == 0 {
		return 0, false, nil
	}

	return rows[0].Index, true, nil
}

// =============================================================================

func (s *SQLDB) conn() (*gorm.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil, database.NewConnectionError("sqldb", errors.New("store not initialized"))
	}

	return s.db, nil
}

func byIndex(desc bool) clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: "index"}, Desc: desc}
}

func toBlock(row blockRow) (database.Block, error) {
	trans, err := database.DecodeTrans(row.Transactions)
	if err != nil {
		return database.Block{}, err
	}

	blockData := database.BlockData{
		Hash: row.Hash,
		Header: database.BlockHeader{
			Index:         row.Index,
			TimeStamp:     row.Timestamp,
			PrevBlockHash: row.PreviousHash,
			Nonce:         row.Nonce,
		},
		Trans: trans,
	}

	return database.ToBlock(blockData)
}
