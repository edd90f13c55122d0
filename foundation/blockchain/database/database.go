// Package database defines the ledger's block model, the proof of work and
// chain validation rules, and the storage port the ledger persists through.
package database

import (
	"errors"
	"fmt"
)

// Set of errors storage implementations report.
var (
	ErrStoreConfiguration = errors.New("store configuration")
	ErrStoreConnection    = errors.New("store connection")
	ErrIndexExists        = errors.New("block index already exists")
)

// Storage interface represents the behavior required to be implemented by
// any package providing support for persisting the blockchain.
//
// Write must behave as a compare-and-insert on the block index. A block whose
// index is already stored is rejected with ErrIndexExists, which is what keeps
// MaxIndex followed by Write from producing duplicate indexes.
type Storage interface {
	Initialize() error
	Write(block Block) error
	ReadAll() ([]Block, error)
	MaxIndex() (uint64, bool, error)
	Close() error
}

// NewConfigurationError wraps an error as a store configuration error.
func NewConfigurationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrStoreConfiguration, msg)
}

// NewConnectionError wraps an I/O failure against a store.
func NewConnectionError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreConnection, err)
}
