// Package ledgergrp maintains the group of handlers for device and
// operator access to the ledger.
package ledgergrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/iotledger/business/web/errs"
	"github.com/ardanlabs/iotledger/business/web/metrics"
	"github.com/ardanlabs/iotledger/foundation/blockchain/canonical"
	"github.com/ardanlabs/iotledger/foundation/blockchain/database"
	"github.com/ardanlabs/iotledger/foundation/blockchain/signature"
	"github.com/ardanlabs/iotledger/foundation/blockchain/state"
	"github.com/ardanlabs/iotledger/foundation/events"
	"github.com/ardanlabs/iotledger/foundation/nameservice"
	"github.com/ardanlabs/iotledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log               *zap.SugaredLogger
	State             *state.State
	NS                *nameservice.NameService
	Evts              *events.Events
	Metrics           *metrics.Metrics
	WS                websocket.Upgrader
	RequireSignatures bool
	MineTimeout       time.Duration
}

// AddTransaction accepts a device reading. When the reading fills the
// pending buffer a block is mined before responding.
func (h Handlers) AddTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var record map[string]any
	if err := web.Decode(r, &record); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	switch {
	case signature.IsSigned(record):
		from, err := signature.Verify(record)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		h.Log.Infow("add tran", "traceid", v.TraceID, "from", from, "device", toTx(h.NS, record).DeviceName)

	case h.RequireSignatures:
		return errs.NewTrusted(signature.ErrNotSigned, http.StatusBadRequest)
	}

	ctx, cancel := h.mineContext(ctx)
	defer cancel()

	receipt, err := h.State.AddTransaction(ctx, record)
	if err != nil {
		if errors.Is(err, database.ErrEmptyTx) || errors.Is(err, canonical.ErrEncoding) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}

		// The reading was accepted but the block couldn't be sealed. It
		// stays pending for the next attempt.
		h.Metrics.Transactions.Inc()
		h.observeFailure(err)
		h.observe()

		resp := txReceipt{
			Status:      "transaction pending, mining failed",
			Pending:     receipt.Pending,
			MiningError: err.Error(),
		}
		return web.Respond(ctx, w, resp, http.StatusAccepted)
	}

	h.Metrics.Transactions.Inc()

	resp := txReceipt{
		Status:  "transaction pending",
		Pending: receipt.Pending,
	}

	if receipt.Block != nil {
		h.Metrics.BlocksMined.Inc()

		blk := toBlock(h.NS, *receipt.Block)
		resp.Status = "block mined"
		resp.Block = &blk
	}

	h.observe()

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// MineBlock seals the pending readings into a block.
func (h Handlers) MineBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	mctx, cancel := h.mineContext(ctx)
	defer cancel()

	blk, err := h.State.MineBlock(mctx)
	if err != nil {
		h.observeFailure(err)

		switch {
		case errors.Is(err, state.ErrNoTransactions), errors.Is(err, state.ErrIndexConflict):
			return errs.NewTrusted(err, http.StatusConflict)

		case errors.Is(err, database.ErrMiningExhausted), errors.Is(err, context.DeadlineExceeded):
			return errs.NewTrusted(err, http.StatusServiceUnavailable)
		}

		return fmt.Errorf("mining block: %w", err)
	}

	h.Metrics.BlocksMined.Inc()
	h.observe()

	return web.Respond(ctx, w, toBlock(h.NS, blk), http.StatusOK)
}

// BlocksList returns the chain as it is persisted.
func (h Handlers) BlocksList(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain, err := h.State.GetChain()
	if err != nil {
		return fmt.Errorf("reading chain: %w", err)
	}

	blocks := make([]block, len(chain))
	for i, b := range chain {
		blocks[i] = toBlock(h.NS, b)
	}

	latest := h.State.LatestBlock()

	info := chainInfo{
		Height:   latest.Header.Index,
		Pending:  len(h.State.QueryPending()),
		Blocks:   blocks,
		LastHash: latest.Hash,
	}

	return web.Respond(ctx, w, info, http.StatusOK)
}

// BlockByIndex returns a single block.
func (h Handlers) BlockByIndex(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "invalid block index: %s", web.Param(r, "index"))
	}

	blk, err := h.State.QueryBlock(index)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return err
	}

	return web.Respond(ctx, w, toBlock(h.NS, blk), http.StatusOK)
}

// Proof returns the merkle inclusion proof for a sealed reading.
func (h Handlers) Proof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "invalid block index: %s", web.Param(r, "index"))
	}

	position, err := strconv.Atoi(web.Param(r, "position"))
	if err != nil {
		return errs.NewTrustedf(http.StatusBadRequest, "invalid position: %s", web.Param(r, "position"))
	}

	proof, err := h.State.QueryProof(index, position)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return errs.NewTrusted(err, http.StatusNotFound)
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, proof, http.StatusOK)
}

// Pending returns the readings waiting to be mined.
func (h Handlers) Pending(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, toTxs(h.NS, h.State.QueryPending()), http.StatusOK)
}

// Validate runs the chain validator. Passing source=storage validates the
// chain as it is persisted instead of the chain held in memory.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	verdict := h.State.Validate()

	if r.URL.Query().Get("source") == "storage" {
		var err error
		if verdict, err = h.State.ValidateStored(); err != nil {
			return fmt.Errorf("validating stored chain: %w", err)
		}
	}

	return web.Respond(ctx, w, verdict, http.StatusOK)
}

// Events handles a web socket to provide ledger events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

func (h Handlers) mineContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.MineTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.MineTimeout)
}

func (h Handlers) observe() {
	h.Metrics.ChainHeight.Set(float64(h.State.LatestBlock().Header.Index))
	h.Metrics.Pending.Set(float64(len(h.State.QueryPending())))
}

func (h Handlers) observeFailure(err error) {
	reason := "other"
	switch {
	case errors.Is(err, state.ErrNoTransactions):
		reason = "no_transactions"
	case errors.Is(err, database.ErrMiningExhausted):
		reason = "exhausted"
	case errors.Is(err, state.ErrIndexConflict), errors.Is(err, database.ErrIndexExists):
		reason = "index_conflict"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		reason = "cancelled"
	case errors.Is(err, database.ErrStoreConnection):
		reason = "storage"
	}

	h.Metrics.MiningFailure.WithLabelValues(reason).Inc()
}
