// Package disk implements the ability to read and write blocks to disk with
// one file per block.
package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

const ext = ".json"

// Disk represents the serialization implementation for reading and storing
// blocks in their own separate files on disk. This implements the
// database.Storage interface.
type Disk struct {
	dbPath string
}

// New constructs a Disk value for use.
func New(dbPath string) (*Disk, error) {
	if dbPath == "" {
		return nil, database.NewConfigurationError("disk store requires a path")
	}

	return &Disk{dbPath: dbPath}, nil
}

// Initialize makes sure the folder for the blocks exists.
func (d *Disk) Initialize() error {
	if err := os.MkdirAll(d.dbPath, 0755); err != nil {
		return database.NewConnectionError("disk: initialize", err)
	}

	return nil
}

// Close in this implementation has nothing to do since a new file is
// written to disk for each new block and then immediately closed.
func (d *Disk) Close() error {
	return nil
}

// Write takes the specified block and stores it on disk in a file labeled
// with the block index. The file is created exclusively so an index can only
// be written once.
func (d *Disk) Write(block database.Block) error {
	data, err := database.EncodeBlockData(block)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(d.getPath(block.Header.Index), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return database.ErrIndexExists
		}
		return database.NewConnectionError("disk: write", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return database.NewConnectionError("disk: write", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return database.NewConnectionError("disk: write", err)
	}

	return nil
}

// ReadAll reads every block file in index order.
func (d *Disk) ReadAll() ([]database.Block, error) {
	indexes, err := d.indexes()
	if err != nil {
		return nil, err
	}

	blocks := make([]database.Block, 0, len(indexes))
	for _, index := range indexes {
		data, err := os.ReadFile(d.getPath(index))
		if err != nil {
			return nil, database.NewConnectionError("disk: read", err)
		}

		block, err := database.DecodeBlock(data)
		if err != nil {
			return nil, fmt.Errorf("blk[%d]: %w", index, err)
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

// MaxIndex returns the highest index found on disk.
func (d *Disk) MaxIndex() (uint64, bool, error) {
	indexes, err := d.indexes()
	if err != nil {
		return 0, false, err
	}

	if len(indexes) == 0 {
		return 0, false, nil
	}

	return indexes[len(indexes)-1], true, nil
}

// =============================================================================

// indexes returns the sorted set of block indexes stored in the folder.
func (d *Disk) indexes() ([]uint64, error) {
	entries, err := os.ReadDir(d.dbPath)
	if err != nil {
		return nil, database.NewConnectionError("disk: read dir", err)
	}

	var indexes []uint64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}

		index, err := strconv.ParseUint(strings.TrimSuffix(name, ext), 10, 64)
		if err != nil {
			continue
		}

		indexes = append(indexes, index)
	}

	slices.Sort(indexes)

	return indexes, nil
}

// getPath forms the path to the specified block.
func (d *Disk) getPath(index uint64) string {
	return filepath.Join(d.dbPath, strconv.FormatUint(index, 10)+ext)
}
