// Package metrics provides Prometheus metrics for a running backtest: run
// counters, fill/trade counters, equity and drawdown gauges, and a
// rejected-order counter for orders the Portfolio refused (capacity or
// direction conflicts).
//
// Grounded in
// _examples/Inkedup1114-bitunixbot/internal/metrics/metrics.go's
// New/NewWithRegistry factory pattern (promauto-backed counters/gauges/
// histograms registered at construction), re-keyed on backtest concerns
// instead of the teacher's live order/ML/WebSocket metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric a backtest run updates.
type Metrics struct {
	RunsStarted   prometheus.Counter // Total number of backtest runs started
	RunsCompleted prometheus.Counter // Total number of backtest runs completed without error
	BarsProcessed prometheus.Counter // Total number of bars processed across all runs

	FillsTotal  prometheus.Counter // Total number of fills (entries, merges, exits)
	TradesTotal prometheus.Counter // Total number of closed (or partially closed) trades
	OrdersRejected prometheus.Counter // Total number of orders the portfolio refused (capacity/direction conflict)

	Equity       prometheus.Gauge // Current portfolio equity
	DrawdownPct  prometheus.Gauge // Current drawdown from peak equity, as a percentage
	OpenPositions prometheus.Gauge // Number of currently open positions

	ExitReasonCounts *prometheus.CounterVec // Closed trades by exit reason label
}

// New creates and registers all metrics with the default Prometheus
// registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against a custom registry, so tests can
// collect metrics in isolation from the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "replaybt_runs_started_total",
			Help: "Total number of backtest runs started",
		}),
		RunsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "replaybt_runs_completed_total",
			Help: "Total number of backtest runs completed without error",
		}),
		BarsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "replaybt_bars_processed_total",
			Help: "Total number of bars processed across all runs",
		}),
		FillsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "replaybt_fills_total",
			Help: "Total number of fills (entries, merges, exits)",
		}),
		TradesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "replaybt_trades_total",
			Help: "Total number of closed or partially closed trades",
		}),
		OrdersRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "replaybt_orders_rejected_total",
			Help: "Total number of orders rejected by capacity or direction-conflict rules",
		}),
		Equity: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replaybt_equity",
			Help: "Current portfolio equity",
		}),
		DrawdownPct: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replaybt_drawdown_pct",
			Help: "Current drawdown from peak equity, as a percentage",
		}),
		OpenPositions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "replaybt_open_positions",
			Help: "Number of currently open positions",
		}),
		ExitReasonCounts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "replaybt_exits_total",
			Help: "Total closed trades by exit reason",
		}, []string{"reason"}),
	}
}
