package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/iotledger/app/services/ledger/handlers"
	"github.com/ardanlabs/iotledger/business/web/metrics"
	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/signature"
	"github.com/ardanlabs/iotledger/foundation/blockchain/state"
	"github.com/ardanlabs/iotledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/iotledger/foundation/events"
	"github.com/ardanlabs/iotledger/foundation/nameservice"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type ledgerTest struct {
	app     http.Handler
	debug   http.Handler
	storage *memory.Memory
	evts    *events.Events
	keyFile string
}

func newLedgerTest(t *testing.T, requireSignatures bool) *ledgerTest {
	t.Helper()

	log := zap.NewNop().Sugar()

	// A single known device.
	folder := t.TempDir()
	keyFile := filepath.Join(folder, "raspberry.ecdsa")
	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %v", err)
	}
	if err := crypto.SaveECDSA(keyFile, pk); err != nil {
		t.Fatalf("unable to save key: %v", err)
	}

	ns, err := nameservice.New(folder)
	if err != nil {
		t.Fatalf("unable to construct name service: %v", err)
	}

	evts := events.New(100)
	storage := memory.New()

	st, err := state.New(state.Config{
		Difficulty:    1,
		NonceLimit:    1_000_000,
		TransPerBlock: 2,
		Storage:       storage,
		EvHandler: func(v string, args ...any) {
			evts.Send(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		t.Fatalf("unable to construct state: %v", err)
	}

	mtrs := metrics.New()

	lt := ledgerTest{
		app: handlers.PublicMux(handlers.MuxConfig{
			Shutdown:          make(chan os.Signal, 1),
			Log:               log,
			State:             st,
			NS:                ns,
			Evts:              evts,
			Metrics:           mtrs,
			RequireSignatures: requireSignatures,
			MineTimeout:       10 * time.Second,
		}),
		debug:   handlers.DebugMux("test", log, st, mtrs),
		storage: storage,
		evts:    evts,
		keyFile: keyFile,
	}

	return &lt
}

func (lt *ledgerTest) do(t *testing.T, method string, path string, body any, exp int, resp any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("unable to encode body: %v", err)
		}
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	lt.app.ServeHTTP(w, r)

	if w.Code != exp {
		t.Fatalf("\t%s\t%s %s: Should receive a status code of %d, got %d: %s", failed, method, path, exp, w.Code, w.Body)
	}

	if resp != nil {
		if err := json.Unmarshal(w.Body.Bytes(), resp); err != nil {
			t.Fatalf("\t%s\t%s %s: Should be able to unmarshal the response: %v", failed, method, path, err)
		}
	}
}

// =============================================================================

func Test_Ledger(t *testing.T) {
	lt := newLedgerTest(t, false)

	t.Log("Given the need to record device readings over the API.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen posting two readings.", testID)
		{
			var receipt struct {
				Status  string `json:"status"`
				Pending int    `json:"pending"`
				Block   *struct {
					Index        uint64 `json:"index"`
					Hash         string `json:"hash"`
					Transactions []struct {
						Data map[string]any `json:"data"`
					} `json:"transactions"`
				} `json:"block"`
			}

			lt.do(t, http.MethodPost, "/v1/tx/add", map[string]any{"device": "Raspberry Pi", "distance": 100}, http.StatusOK, &receipt)
			if receipt.Pending != 1 || receipt.Block != nil {
				t.Fatalf("\t%s\tTest %d:\tShould hold the first reading: %+v", failed, testID, receipt)
			}
			t.Logf("\t%s\tTest %d:\tShould hold the first reading.", success, testID)

			var pending []map[string]any
			lt.do(t, http.MethodGet, "/v1/tx/pending/list", nil, http.StatusOK, &pending)
			if len(pending) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould list one pending reading.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould list one pending reading.", success, testID)

			lt.do(t, http.MethodPost, "/v1/tx/add", map[string]any{"device": "Raspberry Pi", "distance": 200}, http.StatusOK, &receipt)
			if receipt.Block == nil || receipt.Block.Index != 1 || len(receipt.Block.Transactions) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould mine block 1 with both readings: %+v", failed, testID, receipt)
			}
			t.Logf("\t%s\tTest %d:\tShould mine block 1 with both readings.", success, testID)

			if !strings.HasPrefix(receipt.Block.Hash, "0") {
				t.Fatalf("\t%s\tTest %d:\tShould meet the difficulty: %s", failed, testID, receipt.Block.Hash)
			}
			t.Logf("\t%s\tTest %d:\tShould meet the difficulty.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen reading the chain.", testID)
		{
			var info struct {
				Height uint64 `json:"height"`
				Blocks []struct {
					Index uint64 `json:"index"`
				} `json:"blocks"`
			}
			lt.do(t, http.MethodGet, "/v1/blocks/list", nil, http.StatusOK, &info)
			if info.Height != 1 || len(info.Blocks) != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould list genesis and block 1: %+v", failed, testID, info)
			}
			t.Logf("\t%s\tTest %d:\tShould list genesis and block 1.", success, testID)

			var blk struct {
				Index uint64 `json:"index"`
			}
			lt.do(t, http.MethodGet, "/v1/blocks/1", nil, http.StatusOK, &blk)
			if blk.Index != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould get block 1.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get block 1.", success, testID)

			lt.do(t, http.MethodGet, "/v1/blocks/9", nil, http.StatusNotFound, nil)
			lt.do(t, http.MethodGet, "/v1/blocks/abc", nil, http.StatusBadRequest, nil)
			t.Logf("\t%s\tTest %d:\tShould reject unknown and malformed indexes.", success, testID)

			var proof database.TxProof
			lt.do(t, http.MethodGet, "/v1/blocks/1/proof/0", nil, http.StatusOK, &proof)
			if proof.Index != 1 || proof.Position != 0 || len(proof.Hashes) != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould get a proof for the first reading: %+v", failed, testID, proof)
			}
			t.Logf("\t%s\tTest %d:\tShould get a proof for the first reading.", success, testID)

			lt.do(t, http.MethodGet, "/v1/blocks/1/proof/5", nil, http.StatusBadRequest, nil)
			t.Logf("\t%s\tTest %d:\tShould reject a position out of range.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining with nothing pending.", testID)
		{
			lt.do(t, http.MethodPost, "/v1/block/mine", nil, http.StatusConflict, nil)
			t.Logf("\t%s\tTest %d:\tShould receive a conflict.", success, testID)

			lt.do(t, http.MethodPost, "/v1/tx/add", map[string]any{}, http.StatusBadRequest, nil)
			t.Logf("\t%s\tTest %d:\tShould reject an empty reading.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the stored chain is tampered with.", testID)
		{
			var verdict database.Verdict
			lt.do(t, http.MethodGet, "/v1/chain/validate", nil, http.StatusOK, &verdict)
			if !verdict.Valid {
				t.Fatalf("\t%s\tTest %d:\tShould start valid: %+v", failed, testID, verdict)
			}
			t.Logf("\t%s\tTest %d:\tShould start valid.", success, testID)

			chain, err := lt.storage.ReadAll()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould read the stored chain: %v", failed, testID, err)
			}
			tampered := chain[1]
			tampered.Trans = []database.Tx{{"device": "Tampered Device"}, chain[1].Trans[1]}
			if err := lt.storage.Replace(tampered); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould replace the block: %v", failed, testID, err)
			}

			lt.do(t, http.MethodGet, "/v1/chain/validate?source=storage", nil, http.StatusOK, &verdict)
			if verdict.Valid || verdict.Index != 1 || verdict.Reason != database.HashMismatch {
				t.Fatalf("\t%s\tTest %d:\tShould report a hash mismatch at 1: %+v", failed, testID, verdict)
			}
			t.Logf("\t%s\tTest %d:\tShould report a hash mismatch at 1.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen checking the debug endpoints.", testID)
		{
			for _, path := range []string{"/debug/readiness", "/debug/liveness", "/metrics"} {
				w := httptest.NewRecorder()
				lt.debug.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
				if w.Code != http.StatusOK {
					t.Fatalf("\t%s\tTest %d:\tShould get a 200 from %s, got %d.", failed, testID, path, w.Code)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get a 200 from the debug endpoints.", success, testID)
		}
	}
}

func Test_SignedReadings(t *testing.T) {
	lt := newLedgerTest(t, true)

	pk, err := crypto.LoadECDSA(lt.keyFile)
	if err != nil {
		t.Fatalf("unable to load key: %v", err)
	}

	t.Log("Given the need to only accept signed readings.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen posting readings.", testID)
		{
			lt.do(t, http.MethodPost, "/v1/tx/add", map[string]any{"device": "A", "distance": 1}, http.StatusBadRequest, nil)
			t.Logf("\t%s\tTest %d:\tShould reject an unsigned reading.", success, testID)

			signed, err := signature.Sign(map[string]any{"device": "A", "distance": 1.25}, pk)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to sign: %v", failed, testID, err)
			}

			lt.do(t, http.MethodPost, "/v1/tx/add", signed, http.StatusOK, nil)
			t.Logf("\t%s\tTest %d:\tShould accept a signed reading.", success, testID)

			var pending []struct {
				DeviceName string `json:"device_name"`
			}
			lt.do(t, http.MethodGet, "/v1/tx/pending/list", nil, http.StatusOK, &pending)
			if len(pending) != 1 || pending[0].DeviceName != "raspberry" {
				t.Fatalf("\t%s\tTest %d:\tShould resolve the device name: %+v", failed, testID, pending)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve the device name.", success, testID)

			signed["distance"] = 9
			lt.do(t, http.MethodPost, "/v1/tx/add", signed, http.StatusBadRequest, nil)
			t.Logf("\t%s\tTest %d:\tShould reject a modified reading.", success, testID)
		}
	}
}

func Test_Events(t *testing.T) {
	lt := newLedgerTest(t, false)

	srv := httptest.NewServer(lt.app)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/events", nil)
	if err != nil {
		t.Fatalf("unable to dial: %v", err)
	}
	defer conn.Close()

	// The subscription is registered after the upgrade completes.
	for start := time.Now(); lt.evts.Subscribers() == 0; time.Sleep(10 * time.Millisecond) {
		if time.Since(start) > 5*time.Second {
			t.Fatalf("the websocket never subscribed")
		}
	}

	lt.do(t, http.MethodPost, "/v1/tx/add", map[string]any{"device": "A"}, http.StatusOK, nil)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var evt events.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("unable to read event: %v", err)
	}

	if !strings.HasPrefix(evt.Message, "state: AddTransaction") {
		t.Fatalf("expected the add transaction event, got %q", evt.Message)
	}
}
