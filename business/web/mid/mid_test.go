package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/iotledger/business/sys/validate"
	"github.com/ardanlabs/iotledger/business/web/errs"
	"github.com/ardanlabs/iotledger/business/web/metrics"
	"github.com/ardanlabs/iotledger/business/web/mid"
	"github.com/ardanlabs/iotledger/foundation/web"
	"go.uber.org/zap"
)

func TestErrors(t *testing.T) {
	m := metrics.New()
	app := web.NewApp(make(chan os.Signal, 1), mid.Logger(zap.NewNop().Sugar()), mid.Errors(zap.NewNop().Sugar()), mid.Metrics(m), mid.Cors("*"), mid.Panics(m))

	app.Handle(http.MethodGet, "v1", "/trusted", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errs.NewTrusted(errors.New("no transactions in mempool"), http.StatusConflict)
	})
	app.Handle(http.MethodGet, "v1", "/fields", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return validate.Check(struct {
			Device string `json:"device" validate:"required"`
		}{})
	})
	app.Handle(http.MethodGet, "v1", "/internal", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return errors.New("database password leaked")
	})
	app.Handle(http.MethodGet, "v1", "/panic", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		panic("boom")
	})

	tt := []struct {
		path   string
		status int
		msg    string
		fields bool
	}{
		{"/v1/trusted", http.StatusConflict, "no transactions in mempool", false},
		{"/v1/fields", http.StatusBadRequest, "data validation error", true},
		{"/v1/internal", http.StatusInternalServerError, "Internal Server Error", false},
		{"/v1/panic", http.StatusInternalServerError, "Internal Server Error", false},
	}

	for _, tst := range tt {
		t.Run(tst.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tst.path, nil))

			if w.Code != tst.status {
				t.Fatalf("expected status %d, got %d", tst.status, w.Code)
			}

			var resp errs.Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unable to unmarshal: %v", err)
			}

			if resp.Error != tst.msg {
				t.Fatalf("expected %q, got %q", tst.msg, resp.Error)
			}

			if tst.fields && resp.Fields["device"] == "" {
				t.Fatalf("expected the device field error, got %v", resp.Fields)
			}

			if w.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Fatalf("expected the cors headers")
			}
		})
	}
}
