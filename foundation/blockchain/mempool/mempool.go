// Package mempool maintains the buffer of transactions waiting to be mined.
package mempool

import (
	"sync"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

// Mempool represents an ordered buffer of pending transactions. Transactions
// are mined in the order they arrived.
type Mempool struct {
	pool []database.Tx
	mu   sync.RWMutex
}

// New constructs a new, empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends a transaction to the end of the pool and returns the new size.
func (mp *Mempool) Add(tx database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = append(mp.pool, tx)

	return len(mp.pool)
}

// Copy returns the pending transactions in arrival order. The returned slice
// is owned by the caller.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]database.Tx, len(mp.pool))
	copy(trans, mp.pool)

	return trans
}

// Remove drops the first howMany transactions from the pool. This is used
// after those transactions were sealed into a block.
func (mp *Mempool) Remove(howMany int) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if howMany >= len(mp.pool) {
		mp.pool = nil
		return
	}

	mp.pool = append([]database.Tx(nil), mp.pool[howMany:]...)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
}
