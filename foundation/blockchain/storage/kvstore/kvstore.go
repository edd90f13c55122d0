// Package kvstore implements the ability to read and write blocks to a
// LevelDB key value store.
package kvstore

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Keys used to organize the store. Block keys are zero padded so the
// natural key order is the index order.
const (
	blockKeyPrefix = "block_"
	heightKey      = "height"
)

// KVStore represents the serialization implementation for reading and
// storing blocks in LevelDB. This implements the database.Storage interface.
type KVStore struct {
	path string

	mu sync.Mutex
	db *leveldb.DB
}

// New constructs a KVStore value for use. The database is opened by
// Initialize.
func New(path string) (*KVStore, error) {
	if path == "" {
		return nil, database.NewConfigurationError("leveldb store requires a path")
	}

	return &KVStore{path: path}, nil
}

// Initialize opens the LevelDB database, creating it when missing.
func (kv *KVStore) Initialize() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.db != nil {
		return nil
	}

	options := opt.Options{
		BlockCacheCapacity: 8 * opt.MiB,
		WriteBuffer:        4 * opt.MiB,
	}

	db, err := leveldb.OpenFile(kv.path, &options)
	if err != nil {
		return database.NewConnectionError("leveldb: open", err)
	}

	kv.db = db

	return nil
}

// Close closes the database.
func (kv *KVStore) Close() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.db == nil {
		return nil
	}

	err := kv.db.Close()
	kv.db = nil

	return err
}

// Write stores the block and moves the height forward in one batch.
func (kv *KVStore) Write(block database.Block) error {
	data, err := database.EncodeBlockData(block)
	if err != nil {
		return err
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.db == nil {
		return errNotInitialized
	}

	key := blockKey(block.Header.Index)

	exists, err := kv.db.Has(key, nil)
	if err != nil {
		return database.NewConnectionError("leveldb: has", err)
	}
	if exists {
		return database.ErrIndexExists
	}

	batch := new(leveldb.Batch)
	batch.Put(key, data)

	height, ok, err := kv.height()
	if err != nil {
		return err
	}
	if !ok || block.Header.Index > height {
		batch.Put([]byte(heightKey), []byte(strconv.FormatUint(block.Header.Index, 10)))
	}

	if err := kv.db.Write(batch, nil); err != nil {
		return database.NewConnectionError("leveldb: write", err)
	}

	return nil
}

// ReadAll iterates the block keys in order.
func (kv *KVStore) ReadAll() ([]database.Block, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.db == nil {
		return nil, errNotInitialized
	}

	iter := kv.db.NewIterator(util.BytesPrefix([]byte(blockKeyPrefix)), nil)
	defer iter.Release()

	var blocks []database.Block
	for iter.Next() {
		block, err := database.DecodeBlock(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("key[%s]: %w", iter.Key(), err)
		}
		blocks = append(blocks, block)
	}

	if err := iter.Error(); err != nil {
		return nil, database.NewConnectionError("leveldb: iterate", err)
	}

	return blocks, nil
}

// MaxIndex returns the recorded height of the chain.
func (kv *KVStore) MaxIndex() (uint64, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	if kv.db == nil {
		return 0, false, errNotInitialized
	}

	return kv.height()
}

// =============================================================================

var errNotInitialized = database.NewConnectionError("leveldb", errors.New("store not initialized"))

// height reads the height key. The caller must hold the lock.
func (kv *KVStore) height() (uint64, bool, error) {
	data, err := kv.db.Get([]byte(heightKey), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, database.NewConnectionError("leveldb: height", err)
	}

	height, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return 0, false, database.NewConnectionError("leveldb: height", err)
	}

	return height, true, nil
}

func blockKey(index uint64) []byte {
	return fmt.Appendf(nil, "%s%020d", blockKeyPrefix, index)
}
