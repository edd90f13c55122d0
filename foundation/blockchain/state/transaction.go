package state

import (
	"context"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

// Receipt describes what happened to a submitted transaction.
type Receipt struct {
	Pending int             `json:"pending"`
	Block   *database.Block `json:"block,omitempty"`
}

// AddTransaction accepts a telemetry record for inclusion. When the number of
// pending transactions reaches the per block threshold a block is mined
// before returning. If that mining fails the transaction stays pending and
// the error is returned.
func (s *State) AddTransaction(ctx context.Context, record map[string]any) (Receipt, error) {
	tx, err := database.NewTx(record)
	if err != nil {
		return Receipt{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.mempool.Add(tx)
	s.evHandler("state: AddTransaction: tx[%s]: pending[%d]", tx, pending)

	if pending < s.transPerBlock {
		return Receipt{Pending: pending}, nil
	}

	block, err := s.mineBlock(ctx)
	if err != nil {
		return Receipt{Pending: s.mempool.Count()}, err
	}

	return Receipt{Pending: s.mempool.Count(), Block: &block}, nil
}
