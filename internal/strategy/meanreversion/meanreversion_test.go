package meanreversion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaybt/internal/types"
)

func testConfig() Config {
	return Config{
		BaselineIndicator: "sma20",
		EntryDeviationPct: 0.02,
		TakeProfitPct:     0.03,
		StopLossPct:       0.02,
		WarmupBars:        20,
	}
}

func bar(close float64) types.Bar {
	return types.Bar{
		Timestamp: time.Now(),
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Symbol:    "BTCUSDT",
	}
}

func TestOnBarEntersLongWhenPriceStretchedBelowBaseline(t *testing.T) {
	s := New(testConfig())
	orders := s.OnBar(bar(96), map[string]float64{"sma20": 100}, nil)
	require.Len(t, orders, 1)
	mo, ok := orders[0].(*types.MarketOrder)
	require.True(t, ok)
	assert.Equal(t, types.Long, mo.Side)
}

func TestOnBarEntersShortWhenPriceStretchedAboveBaseline(t *testing.T) {
	s := New(testConfig())
	orders := s.OnBar(bar(104), map[string]float64{"sma20": 100}, nil)
	require.Len(t, orders, 1)
	mo, ok := orders[0].(*types.MarketOrder)
	require.True(t, ok)
	assert.Equal(t, types.Short, mo.Side)
}

func TestOnBarStaysFlatWithinDeviationBand(t *testing.T) {
	s := New(testConfig())
	orders := s.OnBar(bar(100.5), map[string]float64{"sma20": 100}, nil)
	assert.Nil(t, orders)
}

func TestOnBarSkipsEntryWhilePositionOpen(t *testing.T) {
	s := New(testConfig())
	positions := []types.Position{{ID: "p1", Side: types.Long}}
	orders := s.OnBar(bar(96), map[string]float64{"sma20": 100}, positions)
	assert.Nil(t, orders)
}

func TestOnBarIgnoresUnreadyBaseline(t *testing.T) {
	s := New(testConfig())
	orders := s.OnBar(bar(50), map[string]float64{}, nil)
	assert.Nil(t, orders)
}

func TestCheckExitsClosesLongOnceRevertedToEntry(t *testing.T) {
	s := New(testConfig())
	positions := []types.Position{{ID: "p1", Side: types.Long, EntryPrice: 100}}
	exits := s.CheckExits(bar(101), positions)
	require.Len(t, exits, 1)
	assert.Equal(t, 0, exits[0].Index)
	assert.Equal(t, types.ExitSignal, exits[0].Reason)
}

func TestCheckExitsLeavesShortOpenBeforeReversion(t *testing.T) {
	s := New(testConfig())
	positions := []types.Position{{ID: "p1", Side: types.Short, EntryPrice: 100}}
	exits := s.CheckExits(bar(105), positions)
	assert.Empty(t, exits)
}

func TestWarmupPeriodsReportsBaselineIndicator(t *testing.T) {
	s := New(testConfig())
	assert.Equal(t, map[string]int{"sma20": 20}, s.WarmupPeriods())
}
