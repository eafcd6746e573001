package metrics

import "replaybt/internal/processor"

// Recorder observes a processor.BarResult after each processed bar and
// updates the corresponding Prometheus metrics. Kept as a thin wrapper
// (rather than having the processor import this package directly) the same
// way the teacher's MetricsWrapper decouples internal/exec from
// internal/metrics.
type Recorder struct {
	m *Metrics
}

// NewRecorder builds a Recorder around m.
func NewRecorder(m *Metrics) *Recorder {
	return &Recorder{m: m}
}

// RecordBar updates fill/trade/rejection counters from one bar's result and
// the gauges from the portfolio's resulting state.
func (r *Recorder) RecordBar(result processor.BarResult, equity, peakEquity float64, openPositions int) {
	r.m.BarsProcessed.Inc()
	for range result.Fills {
		r.m.FillsTotal.Inc()
	}
	for _, trade := range result.Trades {
		r.m.TradesTotal.Inc()
		r.m.ExitReasonCounts.WithLabelValues(string(trade.Reason.Base())).Inc()
	}

	r.m.Equity.Set(equity)
	r.m.OpenPositions.Set(float64(openPositions))
	if peakEquity > 0 {
		r.m.DrawdownPct.Set((peakEquity - equity) / peakEquity * 100)
	}
}

// RecordRejectedOrder increments the rejected-order counter, for callers
// that attempt an open the Portfolio itself refused (e.g. a strategy
// probing CanOpen before queuing).
func (r *Recorder) RecordRejectedOrder() {
	r.m.OrdersRejected.Inc()
}

// RecordRunStart/RecordRunComplete bracket one backtest run.
func (r *Recorder) RecordRunStart()    { r.m.RunsStarted.Inc() }
func (r *Recorder) RecordRunComplete() { r.m.RunsCompleted.Inc() }
