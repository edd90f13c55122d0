package database

import (
	"errors"
	"fmt"
)

// ErrInvalidChain is matched by the error returned from Verdict.Err.
var ErrInvalidChain = errors.New("invalid chain")

// Reason identifies which chain check a block failed.
type Reason string

// Set of reasons a chain can be invalid, listed in the order they're checked.
const (
	HashMismatch     Reason = "hash mismatch"
	LinkMismatch     Reason = "link mismatch"
	DifficultyNotMet Reason = "difficulty not met"
)

// Verdict is the result of validating a chain. An invalid verdict carries the
// index of the first offending block and the check it failed.
type Verdict struct {
	Valid  bool   `json:"valid"`
	Index  uint64 `json:"index,omitempty"`
	Reason Reason `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Err converts an invalid verdict into an error for callers that want a
// hard failure. A valid verdict returns nil.
func (v Verdict) Err() error {
	if v.Valid {
		return nil
	}

	return &InvalidChainError{Verdict: v}
}

// InvalidChainError carries the verdict of a failed validation.
type InvalidChainError struct {
	Verdict Verdict
}

// Error implements the error interface.
func (e *InvalidChainError) Error() string {
	return fmt.Sprintf("%s: blk[%d]: %s: %s", ErrInvalidChain, e.Verdict.Index, e.Verdict.Reason, e.Verdict.Detail)
}

// Is reports the error as an ErrInvalidChain.
func (e *InvalidChainError) Is(target error) bool {
	return target == ErrInvalidChain
}

// =============================================================================

// ValidateChain walks the chain in order and checks every block against its
// predecessor. The genesis block only has to match its own recorded hash.
func ValidateChain(chain []Block, difficulty uint) Verdict {
	if len(chain) == 0 {
		return Verdict{Valid: true}
	}

	if genesis := chain[0]; genesis.IsSealed() {
		if reason, detail := checkHash(genesis); reason != "" {
			return invalid(genesis, reason, detail)
		}
	}

	for i := 1; i < len(chain); i++ {
		if reason, detail := ValidateBlock(chain[i], chain[i-1], difficulty); reason != "" {
			return invalid(chain[i], reason, detail)
		}
	}

	return Verdict{Valid: true}
}

// ValidateBlock checks a block against its predecessor. It returns the
// reason and a description of the first check that failed, or an empty
// reason when the block is valid.
func ValidateBlock(block Block, previous Block, difficulty uint) (Reason, string) {
	if reason, detail := checkHash(block); reason != "" {
		return reason, detail
	}

	if block.Header.PrevBlockHash != previous.Hash {
		return LinkMismatch, fmt.Sprintf("previous hash %s doesn't match blk[%d] hash %s", block.Header.PrevBlockHash, previous.Header.Index, previous.Hash)
	}

	if !IsHashSolved(difficulty, block.Hash) {
		return DifficultyNotMet, fmt.Sprintf("hash %s doesn't have %d leading zeros", block.Hash, difficulty)
	}

	return "", ""
}

// checkHash compares the stored hash with a fresh computation.
func checkHash(block Block) (Reason, string) {
	hash, err := block.CalculateHash()
	if err != nil {
		return HashMismatch, fmt.Sprintf("unable to calculate hash: %s", err)
	}

	if hash != block.Hash {
		return HashMismatch, fmt.Sprintf("stored hash %s doesn't match calculated hash %s", block.Hash, hash)
	}

	return "", ""
}

func invalid(block Block, reason Reason, detail string) Verdict {
	return Verdict{
		Index:  block.Header.Index,
		Reason: reason,
		Detail: detail,
	}
}
