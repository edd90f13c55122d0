package state_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/state"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newState(t *testing.T, storage database.Storage, difficulty uint, nonceLimit uint64, transPerBlock int) *state.State {
	t.Helper()

	ev := func(v string, args ...any) {
		t.Logf(v, args...)
	}

	st, err := state.New(state.Config{
		Difficulty:    difficulty,
		NonceLimit:    nonceLimit,
		TransPerBlock: transPerBlock,
		Storage:       storage,
		EvHandler:     ev,
	})
	ifErrFailNow(t, err)

	return st
}

// failingStorage fails every write after the genesis block.
type failingStorage struct {
	*memory.Memory
}

func (fs failingStorage) Write(block database.Block) error {
	if block.Header.Index == 0 {
		return fs.Memory.Write(block)
	}
	return database.NewConnectionError("write", errors.New("disk full"))
}

// =============================================================================

func Test_SealAndTamper(t *testing.T) {
	storage := memory.New()
	st := newState(t, storage, 2, 1_000_000, 2)

	t.Log("Given the need to seal device readings into a chain.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen starting with empty storage.", testID)
		{
			genesis := st.LatestBlock()
			if genesis.Header.Index != 0 || genesis.Header.PrevBlockHash != database.GenesisPrevHash {
				t.Fatalf("\t%s\tTest %d:\tShould start with the genesis block: %+v", failed, testID, genesis.Header)
			}
			t.Logf("\t%s\tTest %d:\tShould start with the genesis block.", success, testID)

			if max, ok, err := storage.MaxIndex(); err != nil || !ok || max != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould persist the genesis block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould persist the genesis block.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen adding two transactions.", testID)
		{
			receipt, err := st.AddTransaction(context.Background(), map[string]any{"device": "Raspberry Pi", "distance": 100})
			ifErrFailNow(t, err)

			if receipt.Pending != 1 || receipt.Block != nil {
				t.Fatalf("\t%s\tTest %d:\tShould hold the first transaction: %+v", failed, testID, receipt)
			}
			t.Logf("\t%s\tTest %d:\tShould hold the first transaction.", success, testID)

			receipt, err = st.AddTransaction(context.Background(), map[string]any{"device": "Raspberry Pi", "distance": 200})
			ifErrFailNow(t, err)

			if receipt.Pending != 0 || receipt.Block == nil {
				t.Fatalf("\t%s\tTest %d:\tShould mine a block: %+v", failed, testID, receipt)
			}
			t.Logf("\t%s\tTest %d:\tShould mine a block.", success, testID)

			block := *receipt.Block
			chain, err := st.GetChain()
			ifErrFailNow(t, err)

			if len(chain) != 2 || block.Header.Index != 1 || block.Header.PrevBlockHash != chain[0].Hash {
				t.Fatalf("\t%s\tTest %d:\tShould link block 1 to genesis.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould link block 1 to genesis.", success, testID)

			if len(block.Trans) != 2 || block.Trans[1]["distance"] != chain[1].Trans[1]["distance"] {
				t.Fatalf("\t%s\tTest %d:\tShould carry both transactions in order.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould carry both transactions in order.", success, testID)

			if !strings.HasPrefix(block.Hash, "00") {
				t.Fatalf("\t%s\tTest %d:\tShould meet the difficulty: %s", failed, testID, block.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould meet the difficulty.", success, testID)

			if v := st.Validate(); !v.Valid {
				t.Fatalf("\t%s\tTest %d:\tShould be valid: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould be valid.", success, testID)

			proof, err := st.QueryProof(1, 1)
			ifErrFailNow(t, err)

			if ok, err := proof.Verify(); err != nil || !ok {
				t.Fatalf("\t%s\tTest %d:\tShould prove the second transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould prove the second transaction.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a stored transaction is tampered with.", testID)
		{
			chain, err := st.GetChain()
			ifErrFailNow(t, err)

			tampered := chain[1]
			tampered.Trans = []database.Tx{{"device": "Tampered Device", "distance": "100"}, chain[1].Trans[1]}
			ifErrFailNow(t, storage.Replace(tampered))

			v, err := st.ValidateStored()
			ifErrFailNow(t, err)

			if v.Valid || v.Index != 1 || v.Reason != database.HashMismatch {
				t.Fatalf("\t%s\tTest %d:\tShould detect the tampered block: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould detect the tampered block.", success, testID)

			reloaded := newState(t, storage, 2, 1_000_000, 2)

			v = reloaded.Validate()
			if v.Valid || v.Index != 1 || v.Reason != database.HashMismatch {
				t.Fatalf("\t%s\tTest %d:\tShould load the chain and report it invalid at 1: %+v", failed, testID, v)
			}
			t.Logf("\t%s\tTest %d:\tShould load the chain and report it invalid at 1.", success, testID)

			if !errors.Is(v.Err(), database.ErrInvalidChain) {
				t.Fatalf("\t%s\tTest %d:\tShould convert to an invalid chain error.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould convert to an invalid chain error.", success, testID)
		}
	}
}

func Test_MiningFailures(t *testing.T) {
	t.Log("Given the need to leave the ledger untouched when mining fails.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen there are no pending transactions.", testID)
		{
			st := newState(t, memory.New(), 1, 1_000_000, 2)

			if _, err := st.MineBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with no transactions: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with no transactions.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the nonce search is exhausted.", testID)
		{
			st := newState(t, memory.New(), 10, 1, 1)

			_, err := st.AddTransaction(context.Background(), map[string]any{"device": "A"})
			if !errors.Is(err, database.ErrMiningExhausted) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with mining exhausted: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with mining exhausted.", success, testID)

			if len(st.QueryPending()) != 1 || st.LatestBlock().Header.Index != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the transaction pending and the chain unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the transaction pending and the chain unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining is cancelled.", testID)
		{
			st := newState(t, memory.New(), 10, 1_000_000_000, 5)

			_, err := st.AddTransaction(context.Background(), map[string]any{"device": "A"})
			ifErrFailNow(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := st.MineBlock(ctx); !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with the context error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with the context error.", success, testID)

			if len(st.QueryPending()) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the transaction pending.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the transaction pending.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the storage write fails.", testID)
		{
			st := newState(t, failingStorage{memory.New()}, 1, 1_000_000, 1)

			_, err := st.AddTransaction(context.Background(), map[string]any{"device": "A"})
			if !errors.Is(err, database.ErrStoreConnection) {
				t.Fatalf("\t%s\tTest %d:\tShould surface the storage error: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould surface the storage error.", success, testID)

			if len(st.QueryPending()) != 1 || len(st.QueryChain()) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould leave the chain and pending transactions unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould leave the chain and pending transactions unchanged.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen storage already holds the next index.", testID)
		{
			storage := memory.New()
			st := newState(t, storage, 1, 1_000_000, 1)

			ifErrFailNow(t, storage.Write(database.Block{Header: database.BlockHeader{Index: 1}}))

			_, err := st.AddTransaction(context.Background(), map[string]any{"device": "A"})
			if !errors.Is(err, state.ErrIndexConflict) {
				t.Fatalf("\t%s\tTest %d:\tShould fail with an index conflict: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould fail with an index conflict.", success, testID)
		}
	}
}

func Test_Config(t *testing.T) {
	tt := []struct {
		name string
		cfg  state.Config
	}{
		{"difficulty", state.Config{Difficulty: 65, NonceLimit: 1, TransPerBlock: 1, Storage: memory.New()}},
		{"nonce limit", state.Config{Difficulty: 2, NonceLimit: 0, TransPerBlock: 1, Storage: memory.New()}},
		{"trans per block", state.Config{Difficulty: 2, NonceLimit: 1, TransPerBlock: 0, Storage: memory.New()}},
		{"storage", state.Config{Difficulty: 2, NonceLimit: 1, TransPerBlock: 1}},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			if _, err := state.New(tst.cfg); !errors.Is(err, state.ErrInvalidConfig) {
				t.Fatalf("expected an invalid config error, got %v", err)
			}
		})
	}
}

func Test_Reload(t *testing.T) {
	storage := memory.New()

	st := newState(t, storage, 1, 1_000_000, 1)
	_, err := st.AddTransaction(context.Background(), map[string]any{"device": "A", "distance": 1.5})
	ifErrFailNow(t, err)

	reloaded := newState(t, storage, 1, 1_000_000, 1)

	if len(reloaded.QueryChain()) != 2 {
		t.Fatalf("expected the stored chain to be loaded, got %d blocks", len(reloaded.QueryChain()))
	}

	if v := reloaded.Validate(); !v.Valid {
		t.Fatalf("expected the reloaded chain to be valid: %+v", v)
	}

	block, err := reloaded.QueryBlock(1)
	ifErrFailNow(t, err)

	if block.Hash != st.LatestBlock().Hash {
		t.Fatalf("expected the same head after reloading")
	}

	if _, err := reloaded.QueryBlock(9); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
