package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaybt/internal/execution"
	"replaybt/internal/sizing"
	"replaybt/internal/types"
)

func newTestPortfolio(maxPositions int, sameDir bool) *Portfolio {
	exec := execution.New(0, 0, 0)
	sizer := sizing.NewFixed(10000)
	return New("BTCUSDT", 10000, 10000, maxPositions, exec, sizer, sameDir)
}

func TestOpenAndCloseLongProfit(t *testing.T) {
	p := newTestPortfolio(1, true)
	bar := types.Bar{Timestamp: time.Now(), Open: 100.5, High: 101, Low: 100, Close: 100.8, Symbol: "BTCUSDT"}
	ob := types.OrderBase{Side: types.Long, Symbol: "BTCUSDT", TakeProfitPct: 0.05}
	_, err := p.OpenPosition(bar, ob, bar.Open, false, false)
	require.NoError(t, err)
	require.Len(t, p.Positions, 1)
	assert.InDelta(t, 105.525, p.Positions[0].TakeProfit, 1e-6)

	exitBar := types.Bar{Timestamp: time.Now(), Open: 100.8, High: 110, Low: 100.5, Close: 109, Symbol: "BTCUSDT"}
	trade, err := p.ClosePosition(0, p.Positions[0].TakeProfit, exitBar, types.ExitTakeProfit, 0)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, trade.PnLUSD, 1.0)
	assert.Empty(t, p.Positions)
}

func TestCanOpenCapacityAndDirection(t *testing.T) {
	p := newTestPortfolio(1, true)
	bar := types.Bar{Timestamp: time.Now(), Open: 100, High: 101, Low: 99, Close: 100}
	ob := types.OrderBase{Side: types.Long, Symbol: "X", Group: "g"}
	_, err := p.OpenPosition(bar, ob, 100, false, false)
	require.NoError(t, err)

	assert.False(t, p.CanOpen("g"))

	ob2 := types.OrderBase{Side: types.Short, Symbol: "X", Group: "g"}
	_, err = p.OpenPosition(bar, ob2, 100, false, false)
	assert.Error(t, err)
}

func TestMergeIntoPositionWeightedAverage(t *testing.T) {
	p := newTestPortfolio(5, false)
	bar := types.Bar{Timestamp: time.Now()}
	size := 10000.0
	ob := types.OrderBase{Side: types.Long, Symbol: "X", SizeUSD: &size}
	_, err := p.OpenPosition(bar, ob, 100, false, false)
	require.NoError(t, err)

	addSize := 10000.0
	mergeOB := types.OrderBase{Side: types.Long, Symbol: "X", SizeUSD: &addSize}
	_, err = p.MergeIntoPosition(bar, mergeOB, 110, false)
	require.NoError(t, err)

	require.Len(t, p.Positions, 1)
	assert.InDelta(t, 105, p.Positions[0].EntryPrice, 1e-9)
	assert.InDelta(t, 20000, p.Positions[0].SizeUSD, 1e-9)
}

func TestMergeIntoPositionFailsWithNoExistingPosition(t *testing.T) {
	p := newTestPortfolio(5, false)
	bar := types.Bar{Timestamp: time.Now()}
	ob := types.OrderBase{Side: types.Long, Symbol: "X"}
	_, err := p.MergeIntoPosition(bar, ob, 100, false)
	assert.Error(t, err)
	assert.Empty(t, p.Positions)
}

func TestMergeIntoPositionUsesMostRecentlyOpened(t *testing.T) {
	p := newTestPortfolio(5, false)
	bar := types.Bar{Timestamp: time.Now()}
	first := 10000.0
	second := 5000.0
	_, err := p.OpenPosition(bar, types.OrderBase{Side: types.Long, Symbol: "X", SizeUSD: &first}, 100, false, false)
	require.NoError(t, err)
	_, err = p.OpenPosition(bar, types.OrderBase{Side: types.Long, Symbol: "X", SizeUSD: &second}, 200, false, false)
	require.NoError(t, err)

	addSize := 5000.0
	mergeOB := types.OrderBase{Side: types.Long, Symbol: "X", SizeUSD: &addSize}
	_, err = p.MergeIntoPosition(bar, mergeOB, 200, false)
	require.NoError(t, err)

	require.Len(t, p.Positions, 2)
	assert.InDelta(t, 100, p.Positions[0].EntryPrice, 1e-9)
	assert.InDelta(t, 10000, p.Positions[0].SizeUSD, 1e-9)
	assert.InDelta(t, 200, p.Positions[1].EntryPrice, 1e-9)
	assert.InDelta(t, 10000, p.Positions[1].SizeUSD, 1e-9)
}

func TestPartialTPResetsTakeProfitForRemainder(t *testing.T) {
	p := newTestPortfolio(5, false)
	bar := types.Bar{Timestamp: time.Now()}
	ob := types.OrderBase{Side: types.Long, Symbol: "X", PartialTPPct: 0.5, PartialTPNewTPPct: 0.1}
	_, err := p.OpenPosition(bar, ob, 100, false, false)
	require.NoError(t, err)

	_, err = p.ClosePosition(0, 105, bar, types.ExitPartialTP, 0.5)
	require.NoError(t, err)
	require.Len(t, p.Positions, 1)
	assert.True(t, p.Positions[0].PartialTPDone)
	assert.InDelta(t, 110, p.Positions[0].TakeProfit, 1e-9)
	assert.InDelta(t, 5000, p.Positions[0].SizeUSD, 1e-9)
}

func TestDrawdownIsMonotonicAcrossCloses(t *testing.T) {
	p := newTestPortfolio(5, false)
	bar := types.Bar{Timestamp: time.Now()}
	for i := 0; i < 3; i++ {
		ob := types.OrderBase{Side: types.Long, Symbol: "X"}
		_, err := p.OpenPosition(bar, ob, 100, false, false)
		require.NoError(t, err)
	}
	_, _ = p.ClosePosition(0, 90, bar, types.ExitStopLoss, 0) // loss, drawdown grows
	ddAfterLoss := p.MaxDrawdown
	_, _ = p.ClosePosition(0, 120, bar, types.ExitTakeProfit, 0) // profit, equity recovers
	assert.GreaterOrEqual(t, p.MaxDrawdown, ddAfterLoss, "max drawdown must never decrease")
	_, _ = p.ClosePosition(0, 80, bar, types.ExitStopLoss, 0)
	assert.GreaterOrEqual(t, p.MaxDrawdown, ddAfterLoss)
}
