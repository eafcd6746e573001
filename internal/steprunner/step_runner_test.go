package steprunner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaybt/internal/execution"
	"replaybt/internal/portfolio"
	"replaybt/internal/sizing"
	"replaybt/internal/types"
)

type noopIndicators struct{}

func (noopIndicators) Update(types.Bar)             {}
func (noopIndicators) Snapshot() map[string]float64 { return nil }
func (noopIndicators) Reset()                       {}

type sliceSource struct {
	symbol string
	bars   []types.Bar
	index  int
}

func (s *sliceSource) Symbol() string { return s.symbol }
func (s *sliceSource) Reset()         { s.index = 0 }
func (s *sliceSource) HasNext() bool  { return s.index < len(s.bars) }
func (s *sliceSource) Next() types.Bar {
	b := s.bars[s.index]
	s.index++
	return b
}

func sampleBars() []types.Bar {
	base := time.Now()
	return []types.Bar{
		{Timestamp: base, Symbol: "X", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1},
		{Timestamp: base.Add(time.Minute), Symbol: "X", Open: 100.5, High: 101, Low: 100, Close: 100.8, Volume: 1},
		{Timestamp: base.Add(2 * time.Minute), Symbol: "X", Open: 100.8, High: 110, Low: 100.5, Close: 109, Volume: 1},
	}
}

func newTestRunner() (*StepRunner, *portfolio.Portfolio) {
	exec := execution.New(0, 0, 0)
	sizer := sizing.NewFixed(1000)
	pf := portfolio.New("X", 10000, 1000, 5, exec, sizer, false)
	src := &sliceSource{symbol: "X", bars: sampleBars()}
	sr := New(src, noopIndicators{}, pf, nil)
	return sr, pf
}

func TestResetReturnsFirstBarNotDone(t *testing.T) {
	sr, pf := newTestRunner()
	obs := sr.Reset()
	assert.False(t, obs.Done)
	assert.InDelta(t, 100, obs.Bar.Open, 1e-9)
	assert.Equal(t, pf.InitialEquity, obs.Equity)
}

func TestResetOnEmptySourceReturnsDoneImmediately(t *testing.T) {
	exec := execution.New(0, 0, 0)
	sizer := sizing.NewFixed(1000)
	pf := portfolio.New("X", 10000, 1000, 5, exec, sizer, false)
	src := &sliceSource{symbol: "X"}
	sr := New(src, noopIndicators{}, pf, nil)

	obs := sr.Reset()
	assert.True(t, obs.Done)
}

func TestStepAppliesMarketOrderActionAndFillsNextBar(t *testing.T) {
	sr, pf := newTestRunner()
	sr.Reset()

	size := 1000.0
	action := &types.MarketOrder{OrderBase: types.OrderBase{
		Side: types.Long, Symbol: "X", SizeUSD: &size, TakeProfitPct: 0.05,
	}}
	r1 := sr.Step(action)
	assert.False(t, r1.Done)
	require.Len(t, r1.NewFills, 1, "a market action queued on reset's bar must fill on the very next Step")
	assert.Empty(t, pf.Trades)

	r2 := sr.Step(nil)
	assert.False(t, r2.Done)
	require.Len(t, r2.NewTrades, 1, "take-profit should close the position")
	assert.Greater(t, r2.Reward, 0.0)
}

func TestStepSignalsDoneWhenSourceExhausted(t *testing.T) {
	sr, _ := newTestRunner()
	sr.Reset()

	r1 := sr.Step(nil)
	assert.False(t, r1.Done)
	r2 := sr.Step(nil)
	assert.False(t, r2.Done)
	r3 := sr.Step(nil)
	assert.True(t, r3.Done, "Reset consumed bar 0, leaving exactly two more bars for two Steps before exhaustion")
}

func TestStepAfterDoneIsNoop(t *testing.T) {
	sr, _ := newTestRunner()
	sr.Reset()
	sr.Step(nil)
	sr.Step(nil)
	r := sr.Step(nil)
	require.True(t, r.Done)

	again := sr.Step(nil)
	assert.True(t, again.Done)
	assert.Empty(t, again.NewFills)
}

func TestProxyStrategyNeverGeneratesOrdersFromOnBar(t *testing.T) {
	sr, pf := newTestRunner()
	sr.Reset()
	sr.Step(nil)
	sr.Step(nil)
	assert.Empty(t, pf.Positions, "the proxy's OnBar always returns nil; nothing opens without an explicit action")
}
