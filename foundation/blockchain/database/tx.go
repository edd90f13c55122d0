package database

import (
	"bytes"
	"errors"

	"github.com/ardanlabs/iotledger/foundation/blockchain/canonical"
)

// ErrEmptyTx is returned when a transaction carries no fields.
var ErrEmptyTx = errors.New("transaction has no fields")

// Tx is one telemetry record submitted by a device. The ledger treats it as
// an opaque set of named scalar values; only its canonical encoding matters.
type Tx map[string]any

// NewTx validates the record can be encoded and normalizes its values into
// the same shape they will have once the block is read back from storage.
func NewTx(record map[string]any) (Tx, error) {
	if len(record) == 0 {
		return nil, ErrEmptyTx
	}

	norm, err := canonical.Normalize(record)
	if err != nil {
		return nil, err
	}

	return Tx(norm), nil
}

// Hash implements the merkle Hashable interface. It returns the sha256 of
// the canonical encoding of the transaction.
func (tx Tx) Hash() ([]byte, error) {
	return canonical.Sum(map[string]any(tx))
}

// Equals implements the merkle Hashable interface. Two transactions are equal
// when they encode to the same bytes.
func (tx Tx) Equals(other Tx) bool {
	a, err := canonical.Encode(map[string]any(tx))
	if err != nil {
		return false
	}

	b, err := canonical.Encode(map[string]any(other))
	if err != nil {
		return false
	}

	return bytes.Equal(a, b)
}

// String returns the canonical encoding for logging.
func (tx Tx) String() string {
	data, err := canonical.Encode(map[string]any(tx))
	if err != nil {
		return "<unencodable>"
	}

	return string(data)
}
