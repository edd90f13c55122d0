// Package storage opens the block store selected by configuration.
package storage

import (
	"fmt"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/kvstore"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/sqldb"
)

// Set of store kinds that can be opened.
const (
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindLevelDB  = "leveldb"
	KindDisk     = "disk"
	KindMemory   = "memory"
)

// Config describes the store to open. DSN is used by the SQL kinds and
// Path by the file based kinds.
type Config struct {
	Kind string
	DSN  string
	Path string
}

// Open constructs the store for the configured kind. The store still needs
// to be initialized before use.
func Open(cfg Config) (database.Storage, error) {
	switch cfg.Kind {
	case KindPostgres, KindSQLite:
		return sqldb.New(sqldb.Config{Driver: cfg.Kind, DSN: cfg.DSN})

	case KindLevelDB:
		return kvstore.New(cfg.Path)

	case KindDisk:
		return disk.New(cfg.Path)

	case KindMemory:
		return memory.New(), nil
	}

	return nil, database.NewConfigurationError(fmt.Sprintf("unknown store kind %q", cfg.Kind))
}
