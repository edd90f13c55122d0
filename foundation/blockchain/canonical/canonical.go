// Package canonical produces the deterministic byte form of ledger records
// that is fed into every hash the ledger computes.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEncoding is matched by every error produced when a value can't be
// represented in canonical form.
var ErrEncoding = errors.New("canonical encoding")

// EncodingError describes a value the encoder refused to represent.
type EncodingError struct {
	Err error
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEncoding, e.Err)
}

// Unwrap provides access to the underlying marshal error.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is reports the error as an ErrEncoding.
func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}

// =============================================================================

// Encode returns the canonical bytes for the value. Object keys are written
// in lexicographic order at every level, so two records holding the same
// fields always encode identically regardless of insertion order. Struct
// values are written in field declaration order, so structs that take part in
// hashing declare their fields sorted by their json name.
//
// Non-finite numbers, cycles, channels and functions produce an EncodingError.
func Encode(value any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(value); err != nil {
		return nil, &EncodingError{Err: err}
	}

	// The encoder terminates each value with a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Sum returns the sha256 hash of the canonical encoding of the value.
func Sum(value any) ([]byte, error) {
	data, err := Encode(value)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(data)
	return hash[:], nil
}

// Normalize round trips the record through the canonical encoding. Numbers
// come back as json.Number holding their exact text, which is the same shape
// a record has after it is read back from storage.
func Normalize(record map[string]any) (map[string]any, error) {
	data, err := Encode(record)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := Decode(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// Decode unmarshals canonical bytes into v, preserving numbers exactly.
func Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return &EncodingError{Err: err}
	}

	return nil
}
