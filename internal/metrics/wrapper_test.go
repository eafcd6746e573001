package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"replaybt/internal/processor"
	"replaybt/internal/types"
)

func TestRecordBarUpdatesFillTradeAndGauges(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	r := NewRecorder(m)

	result := processor.BarResult{
		Fills: []types.Fill{{Symbol: "X"}, {Symbol: "X"}},
		Trades: []types.Trade{
			{Symbol: "X", Reason: types.ExitTakeProfitGap},
		},
	}
	r.RecordBar(result, 9500, 10000, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BarsProcessed))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FillsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesTotal))
	assert.Equal(t, 9500.0, testutil.ToFloat64(m.Equity))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpenPositions))
	assert.InDelta(t, 5.0, testutil.ToFloat64(m.DrawdownPct), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExitReasonCounts.WithLabelValues("TAKE_PROFIT")), "the gap variant must fold into its base reason label")
}

func TestRecordRejectedOrderIncrements(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	r := NewRecorder(m)

	r.RecordRejectedOrder()
	r.RecordRejectedOrder()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OrdersRejected))
}

func TestRecordRunStartAndComplete(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	r := NewRecorder(m)

	r.RecordRunStart()
	r.RecordRunComplete()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsCompleted))
}

func TestRecordBarSkipsDrawdownWhenPeakIsZero(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	r := NewRecorder(m)

	r.RecordBar(processor.BarResult{}, 0, 0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DrawdownPct))
}
