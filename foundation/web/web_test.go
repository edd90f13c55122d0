package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ardanlabs/iotledger/foundation/web"
)

type reading struct {
	Device string `json:"device"`
}

func (r reading) Validate() error {
	if r.Device == "" {
		return errors.New("device is required")
	}
	return nil
}

func TestApp(t *testing.T) {
	shutdown := make(chan os.Signal, 1)

	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(shutdown, mw("app"))

	app.Handle(http.MethodPost, "v1", "/readings/:device", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var rd reading
		if err := web.Decode(r, &rd); err != nil {
			return web.Respond(ctx, w, map[string]string{"error": err.Error()}, http.StatusBadRequest)
		}

		v, err := web.GetValues(ctx)
		if err != nil {
			return err
		}

		resp := map[string]string{"device": rd.Device, "param": web.Param(r, "device"), "trace": v.TraceID}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}, mw("route"))

	app.Handle(http.MethodGet, "", "/fatal", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	})

	t.Run("respond", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/readings/pi", strings.NewReader(`{"device":"Raspberry Pi"}`))
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body)
		}

		var resp map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unable to unmarshal: %v", err)
		}

		if resp["device"] != "Raspberry Pi" || resp["param"] != "pi" || resp["trace"] == "" {
			t.Fatalf("unexpected response %v", resp)
		}

		if strings.Join(order, ",") != "app,route" {
			t.Fatalf("expected app middleware before route middleware, got %v", order)
		}
	})

	t.Run("validate", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/v1/readings/pi", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("shutdown", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/fatal", nil)
		w := httptest.NewRecorder()
		app.ServeHTTP(w, r)

		select {
		case <-shutdown:
		default:
			t.Fatalf("expected a shutdown signal")
		}
	})
}
