// Package memory implements the ability to read and write blocks to memory.
package memory

import (
	"maps"
	"slices"
	"sync"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

// Memory represents the serialization implementation for reading and storing
// blocks in memory. Blocks are kept in their encoded form so callers can't
// change what was stored. This implements the database.Storage interface.
type Memory struct {
	mu     sync.RWMutex
	blocks map[uint64][]byte
}

// New constructs an Memory value for use.
func New() *Memory {
	return &Memory{
		blocks: make(map[uint64][]byte),
	}
}

// Initialize in this implementation has nothing to prepare.
func (m *Memory) Initialize() error {
	return nil
}

// Close in this implementation has nothing to do since everything
// is in memory.
func (m *Memory) Close() error {
	return nil
}

// Write takes the specified block and stores it in memory.
func (m *Memory) Write(block database.Block) error {
	data, err := database.EncodeBlockData(block)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blocks[block.Header.Index]; exists {
		return database.ErrIndexExists
	}

	m.blocks[block.Header.Index] = data

	return nil
}

// ReadAll returns every stored block in index order.
func (m *Memory) ReadAll() ([]database.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.Block, 0, len(m.blocks))
	for _, index := range slices.Sorted(maps.Keys(m.blocks)) {
		block, err := database.DecodeBlock(m.blocks[index])
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}

// MaxIndex returns the highest stored index.
func (m *Memory) MaxIndex() (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.blocks) == 0 {
		return 0, false, nil
	}

	return slices.Max(slices.Collect(maps.Keys(m.blocks))), true, nil
}

// Replace overwrites the stored encoding of a block. It exists so tooling
// and tests can model tampering with the store underneath the ledger.
func (m *Memory) Replace(block database.Block) error {
	data, err := database.EncodeBlockData(block)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[block.Header.Index] = data

	return nil
}
