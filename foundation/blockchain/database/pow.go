package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMiningExhausted is returned when the nonce search passes the configured
// nonce limit without finding a solution.
var ErrMiningExhausted = errors.New("mining exhausted, nonce exceeds limit")

// MaxDifficulty is the number of hex characters in a block hash.
const MaxDifficulty = 64

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Index         uint64
	PrevBlockHash string
	Trans         []Tx
	Difficulty    uint
	NonceLimit    uint64
	EvHandler     func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	nb := Block{
		Header: BlockHeader{
			Index:         args.Index,
			TimeStamp:     uint64(time.Now().UTC().UnixMilli()),
			PrevBlockHash: args.PrevBlockHash,
			Nonce:         0, // Will be identified by the POW algorithm.
		},
		Trans: args.Trans,
	}

	if _, err := nb.PerformPOW(ctx, args.Difficulty, args.NonceLimit, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// PerformPOW does the work of mining to find a valid hash for the block.
// Pointer semantics are being used since a nonce is being discovered. The
// nonce starts at zero and is incremented by one until the hash has the
// required number of leading zeros or the nonce passes the limit. A failed
// search leaves the block unsealed.
func (b *Block) PerformPOW(ctx context.Context, difficulty uint, nonceLimit uint64, ev func(v string, args ...any)) (string, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	ev("database: PerformPOW: MINING: started: blk[%d]", b.Header.Index)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Header.Index)

	if difficulty > MaxDifficulty {
		return "", fmt.Errorf("difficulty %d is larger than the hash length %d", difficulty, MaxDifficulty)
	}

	// The transactions don't change while searching so the merkle root is
	// computed once.
	root, err := MerkleRoot(b.Trans)
	if err != nil {
		return "", err
	}

	b.Hash = ""
	b.Header.Nonce = 0
	b.Header.MerkleRoot = root

	hash, err := b.hashWithRoot(root)
	if err != nil {
		return "", err
	}

	attempts := uint64(1)
	for !IsHashSolved(difficulty, hash) {
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED: attempts[%d]", attempts)
			return "", ctx.Err()
		}

		b.Header.Nonce++
		if b.Header.Nonce > nonceLimit {
			ev("database: PerformPOW: MINING: EXHAUSTED: limit[%d]", nonceLimit)
			return "", fmt.Errorf("blk[%d] limit[%d]: %w", b.Header.Index, nonceLimit, ErrMiningExhausted)
		}

		if hash, err = b.hashWithRoot(root); err != nil {
			return "", err
		}

		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}
	}

	b.Hash = hash

	ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", b.Header.PrevBlockHash, hash, attempts)

	return hash, nil
}

// IsHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	const match = "0000000000000000000000000000000000000000000000000000000000000000"

	if difficulty > MaxDifficulty || uint(len(hash)) < difficulty {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
