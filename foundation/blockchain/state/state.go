// Package state is the core API for the ledger and implements all the
// business rules for accepting telemetry and sealing it into blocks.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/mempool"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when the ledger can't be constructed with
// the provided configuration.
var ErrInvalidConfig = errors.New("invalid ledger config")

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the ledger. It is
// read once at construction.
type Config struct {
	Difficulty    uint             `validate:"lte=64"`
	NonceLimit    uint64           `validate:"gt=0"`
	TransPerBlock int              `validate:"gt=0"`
	Storage       database.Storage `validate:"required"`
	EvHandler     EventHandler
}

// State manages the blockchain. All mutation is serialized behind a single
// mutex so only one block is ever being mined.
type State struct {
	difficulty    uint
	nonceLimit    uint64
	transPerBlock int
	evHandler     EventHandler

	mu      sync.Mutex
	chain   []database.Block
	mempool *mempool.Mempool
	storage database.Storage
}

// New constructs the ledger. The chain is loaded from storage, or a genesis
// block is created and persisted when storage is empty.
func New(cfg Config) (*State, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if err := cfg.Storage.Initialize(); err != nil {
		return nil, err
	}

	// Load all existing blocks from storage into memory for processing.
	chain, err := cfg.Storage.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(chain) == 0 {
		genesis, err := database.NewGenesis(time.Now())
		if err != nil {
			return nil, err
		}

		if err := cfg.Storage.Write(genesis); err != nil {
			return nil, err
		}

		ev("state: New: created genesis: blk[%d]: hash[%s]", genesis.Header.Index, genesis.Hash)
		chain = []database.Block{genesis}
	}

	// An invalid stored chain is reported but still loaded so it can be
	// inspected through the API.
	if verdict := database.ValidateChain(chain, cfg.Difficulty); !verdict.Valid {
		ev("state: New: WARNING: %s", verdict.Err())
	}

	ev("state: New: loaded chain: blocks[%d]", len(chain))

	state := State{
		difficulty:    cfg.Difficulty,
		nonceLimit:    cfg.NonceLimit,
		transPerBlock: cfg.TransPerBlock,
		evHandler:     ev,

		chain:   chain,
		mempool: mempool.New(),
		storage: cfg.Storage,
	}

	return &state, nil
}

// Shutdown cleanly brings the ledger down.
func (s *State) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: Shutdown: pending transactions dropped[%d]", s.mempool.Count())

	return s.storage.Close()
}

// Difficulty returns the number of leading zeros a block hash requires.
func (s *State) Difficulty() uint {
	return s.difficulty
}

// TransPerBlock returns the number of pending transactions that triggers
// mining a block.
func (s *State) TransPerBlock() int {
	return s.transPerBlock
}
