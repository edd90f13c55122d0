// Package storagetest provides the behavior every database.Storage
// implementation is expected to have, as a reusable test.
package storagetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
)

// Success and failure markers.
const (
	Success = "\u2713"
	Failed  = "\u2717"
)

// Difficulty is the difficulty the chains built by this package are
// mined with.
const Difficulty = 1

// Chain constructs a genesis block followed by n mined blocks, each holding
// two device readings.
func Chain(t *testing.T, n int) []database.Block {
	t.Helper()

	genesis, err := database.NewGenesis(time.Now())
	if err != nil {
		t.Fatalf("unable to construct genesis: %v", err)
	}

	chain := []database.Block{genesis}
	for i := 1; i <= n; i++ {
		var trans []database.Tx
		for _, distance := range []int{100 * i, 100*i + 50} {
			tx, err := database.NewTx(map[string]any{"device": "Raspberry Pi", "distance": distance})
			if err != nil {
				t.Fatalf("unable to construct tx: %v", err)
			}
			trans = append(trans, tx)
		}

		prev := chain[len(chain)-1]
		block, err := database.POW(context.Background(), database.POWArgs{
			Index:         prev.Header.Index + 1,
			PrevBlockHash: prev.Hash,
			Trans:         trans,
			Difficulty:    Difficulty,
			NonceLimit:    1_000_000,
		})
		if err != nil {
			t.Fatalf("unable to mine block %d: %v", i, err)
		}

		chain = append(chain, block)
	}

	return chain
}

// Run exercises an empty, initialized store. The store is closed when the
// test completes.
func Run(t *testing.T, store database.Storage) {
	t.Helper()

	t.Cleanup(func() { store.Close() })

	t.Log("Given the need to persist the blockchain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the store is empty.", testID)
		{
			if err := store.Initialize(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to initialize the store: %v", Failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to initialize the store.", Success, testID)

			if _, ok, err := store.MaxIndex(); err != nil || ok {
				t.Fatalf("\t%s\tTest %d:\tShould report no max index: %v", Failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report no max index.", Success, testID)

			blocks, err := store.ReadAll()
			if err != nil || len(blocks) != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould read no blocks: %d: %v", Failed, testID, len(blocks), err)
			}
			t.Logf("\t%s\tTest %d:\tShould read no blocks.", Success, testID)
		}

		chain := Chain(t, 3)

		testID++
		t.Logf("\tTest %d:\tWhen writing %d blocks.", testID, len(chain))
		{
			for _, block := range chain {
				if err := store.Write(block); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to write blk[%d]: %v", Failed, testID, block.Header.Index, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to write the blocks.", Success, testID)

			max, ok, err := store.MaxIndex()
			if err != nil || !ok || max != uint64(len(chain)-1) {
				t.Fatalf("\t%s\tTest %d:\tShould report max index %d, got %d: %v", Failed, testID, len(chain)-1, max, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report max index %d.", Success, testID, max)

			blocks, err := store.ReadAll()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to read the blocks: %v", Failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to read the blocks.", Success, testID)

			if !reflect.DeepEqual(blocks, chain) {
				t.Logf("\t\tTest %d:\tgot: %+v", testID, blocks)
				t.Logf("\t\tTest %d:\texp: %+v", testID, chain)
				t.Fatalf("\t%s\tTest %d:\tShould read back the same blocks.", Failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould read back the same blocks.", Success, testID)

			if v := database.ValidateChain(blocks, Difficulty); !v.Valid {
				t.Fatalf("\t%s\tTest %d:\tShould read back a valid chain: %+v", Failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould read back a valid chain.", Success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen writing an index that already exists.", testID)
		{
			dup := chain[2]
			dup.Header.Nonce++

			if err := store.Write(dup); !errors.Is(err, database.ErrIndexExists) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with index exists: %v", Failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with index exists.", Success, testID)

			blocks, err := store.ReadAll()
			if err != nil || !reflect.DeepEqual(blocks, chain) {
				t.Fatalf("\t%s\tTest %d:\tShould leave the stored blocks unchanged: %v", Failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the stored blocks unchanged.", Success, testID)
		}
	}
}
