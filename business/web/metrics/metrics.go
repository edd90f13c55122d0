// Package metrics constructs the metrics the application will track.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the set of collectors the ledger service updates. Each
// Metrics value owns its registry so tests can construct as many as they
// need.
type Metrics struct {
	Registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	Errors        prometheus.Counter
	Panics        prometheus.Counter
	Transactions  prometheus.Counter
	BlocksMined   prometheus.Counter
	MiningFailure *prometheus.CounterVec
	ChainHeight   prometheus.Gauge
	Pending       prometheus.Gauge
}

// New constructs and registers the collectors.
func New() *Metrics {
	m := Metrics{
		Registry: prometheus.NewRegistry(),

		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_requests_total",
			Help: "Number of requests handled by route and status.",
		}, []string{"route", "status"}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_errors_total",
			Help: "Number of requests that returned an error.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_panics_total",
			Help: "Number of panics recovered while handling requests.",
		}),
		Transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Number of transactions accepted into the pending buffer.",
		}),
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_blocks_mined_total",
			Help: "Number of blocks sealed and persisted.",
		}),
		MiningFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_mining_failures_total",
			Help: "Number of failed mining attempts by reason.",
		}, []string{"reason"}),
		ChainHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_chain_height",
			Help: "Index of the head block.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_pending_transactions",
			Help: "Number of transactions waiting to be mined.",
		}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Requests,
		m.Errors,
		m.Panics,
		m.Transactions,
		m.BlocksMined,
		m.MiningFailure,
		m.ChainHeight,
		m.Pending,
	)

	return &m
}
