package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

// Set of errors returned while mining.
var (
	ErrNoTransactions = errors.New("no transactions in mempool")
	ErrIndexConflict  = errors.New("storage index doesn't follow the chain head")
)

// =============================================================================

// MineBlock seals the pending transactions into a new block, persists it and
// appends it to the chain. On failure the chain and the pending transactions
// are left untouched.
func (s *State) MineBlock(ctx context.Context) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mineBlock(ctx)
}

// mineBlock does the work of MineBlock. The caller must hold the lock.
func (s *State) mineBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineBlock: MINING: check mempool count")

	trans := s.mempool.Copy()
	if len(trans) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	head := s.chain[len(s.chain)-1]

	max, ok, err := s.storage.MaxIndex()
	if err != nil {
		return database.Block{}, err
	}

	var index uint64
	if ok {
		index = max + 1
	}

	if index != head.Header.Index+1 {
		return database.Block{}, fmt.Errorf("%w: storage next[%d] head[%d]", ErrIndexConflict, index, head.Header.Index)
	}

	s.evHandler("state: MineBlock: MINING: perform POW: blk[%d]: trans[%d]", index, len(trans))

	block, err := database.POW(ctx, database.POWArgs{
		Index:         index,
		PrevBlockHash: head.Hash,
		Trans:         trans,
		Difficulty:    s.difficulty,
		NonceLimit:    s.nonceLimit,
		EvHandler:     s.evHandler,
	})
	if err != nil {
		s.evHandler("state: MineBlock: MINING: ERROR: %s", err)
		return database.Block{}, err
	}

	s.evHandler("state: MineBlock: MINING: write to storage: blk[%d]", index)

	if err := s.storage.Write(block); err != nil {
		s.evHandler("state: MineBlock: MINING: ERROR: %s", err)
		return database.Block{}, err
	}

	s.chain = append(s.chain, block)
	s.mempool.Remove(len(trans))

	s.evHandler("state: MineBlock: MINING: sealed: blk[%d]: hash[%s]: nonce[%d]", index, block.Hash, block.Header.Nonce)

	return block, nil
}
