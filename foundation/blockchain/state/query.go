package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

// ErrNotFound is returned when a block isn't part of the chain.
var ErrNotFound = errors.New("block not found")

// =============================================================================

// GetChain returns the chain as it is persisted in storage.
func (s *State) GetChain() ([]database.Block, error) {
	return s.storage.ReadAll()
}

// Validate checks the integrity of the chain held in memory.
func (s *State) Validate() database.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	return database.ValidateChain(s.chain, s.difficulty)
}

// ValidateStored checks the integrity of the chain as it is persisted in
// storage, which is where tampering would happen.
func (s *State) ValidateStored() (database.Verdict, error) {
	chain, err := s.storage.ReadAll()
	if err != nil {
		return database.Verdict{}, err
	}

	return database.ValidateChain(chain, s.difficulty), nil
}

// LatestBlock returns the head of the chain.
func (s *State) LatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain[len(s.chain)-1]
}

// QueryChain returns a copy of the in memory chain.
func (s *State) QueryChain() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := make([]database.Block, len(s.chain))
	copy(chain, s.chain)

	return chain
}

// QueryPending returns the transactions waiting to be mined.
func (s *State) QueryPending() []database.Tx {
	return s.mempool.Copy()
}

// QueryBlock returns the block at the specified index.
func (s *State) QueryBlock(index uint64) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, block := range s.chain {
		if block.Header.Index == index {
			return block, nil
		}
	}

	return database.Block{}, fmt.Errorf("blk[%d]: %w", index, ErrNotFound)
}

// QueryProof returns the merkle inclusion proof for the transaction at the
// specified position of a block.
func (s *State) QueryProof(index uint64, position int) (database.TxProof, error) {
	block, err := s.QueryBlock(index)
	if err != nil {
		return database.TxProof{}, err
	}

	return block.Proof(position)
}
