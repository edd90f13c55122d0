package ledgergrp

import (
	"net/http"
	"time"

	"github.com/ardanlabs/iotledger/business/web/metrics"
	"github.com/ardanlabs/iotledger/foundation/blockchain/state"
	"github.com/ardanlabs/iotledger/foundation/events"
	"github.com/ardanlabs/iotledger/foundation/nameservice"
	"github.com/ardanlabs/iotledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log               *zap.SugaredLogger
	State             *state.State
	NS                *nameservice.NameService
	Evts              *events.Events
	Metrics           *metrics.Metrics
	RequireSignatures bool
	MineTimeout       time.Duration
}

// Routes binds all the ledger routes.
func Routes(app *web.App, cfg Config) {
	hdl := Handlers{
		Log:               cfg.Log,
		State:             cfg.State,
		NS:                cfg.NS,
		Evts:              cfg.Evts,
		Metrics:           cfg.Metrics,
		WS:                websocket.Upgrader{},
		RequireSignatures: cfg.RequireSignatures,
		MineTimeout:       cfg.MineTimeout,
	}

	const version = "v1"

	app.Handle(http.MethodGet, version, "/events", hdl.Events)
	app.Handle(http.MethodPost, version, "/tx/add", hdl.AddTransaction)
	app.Handle(http.MethodGet, version, "/tx/pending/list", hdl.Pending)
	app.Handle(http.MethodPost, version, "/block/mine", hdl.MineBlock)
	app.Handle(http.MethodGet, version, "/blocks/list", hdl.BlocksList)
	app.Handle(http.MethodGet, version, "/blocks/:index", hdl.BlockByIndex)
	app.Handle(http.MethodGet, version, "/blocks/:index/proof/:position", hdl.Proof)
	app.Handle(http.MethodGet, version, "/chain/validate", hdl.Validate)
}
