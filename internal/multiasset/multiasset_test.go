package multiasset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaybt/internal/execution"
	"replaybt/internal/sizing"
	"replaybt/internal/strategy"
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

// recordingStrategy opens a long on the first bar it ever sees for a given
// symbol (tracked via the bar's own Symbol field) and never trades again,
// just enough to exercise fills across two legs sharing one instance.
type recordingStrategy struct {
	opened map[string]bool
	seen   []string
}

func (s *recordingStrategy) Configure(strategy.Config) {}

func (s *recordingStrategy) OnBar(bar types.Bar, _ map[string]float64, positions []types.Position) []types.Order {
	s.seen = append(s.seen, bar.Symbol)
	if s.opened == nil {
		s.opened = make(map[string]bool)
	}
	if s.opened[bar.Symbol] || len(positions) > 0 {
		return nil
	}
	s.opened[bar.Symbol] = true
	size := 1000.0
	return []types.Order{&types.MarketOrder{OrderBase: types.OrderBase{
		Side: types.Long, Symbol: bar.Symbol, SizeUSD: &size,
	}}}
}

func (s *recordingStrategy) OnFill(types.Fill) types.Order { return nil }
func (s *recordingStrategy) OnExit(types.Fill, types.Trade) types.Order { return nil }
func (s *recordingStrategy) CheckExits(types.Bar, []types.Position) []strategy.ExitInstruction {
	return nil
}
func (s *recordingStrategy) WarmupPeriods() map[string]int { return nil }

func bars(symbol string, base time.Time, offsets ...time.Duration) []types.Bar {
	out := make([]types.Bar, len(offsets))
	for i, d := range offsets {
		out[i] = types.Bar{
			Timestamp: base.Add(d), Symbol: symbol,
			Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1,
		}
	}
	return out
}

func TestRunMergesLegsInGlobalTimestampOrder(t *testing.T) {
	base := time.Now()
	strat := &recordingStrategy{}
	exec := execution.New(0, 0, 0)
	sizer := sizing.NewFixed(1000)

	r := &Runner{}
	r.AddSymbol("BTCUSDT", &sliceSource{symbol: "BTCUSDT", bars: bars("BTCUSDT", base, 0, 2*time.Minute)}, 10000, 1000, 5, false, exec, sizer, noopIndicators{}, strat)
	r.AddSymbol("ETHUSDT", &sliceSource{symbol: "ETHUSDT", bars: bars("ETHUSDT", base, time.Minute, 3*time.Minute)}, 10000, 1000, 5, false, exec, sizer, noopIndicators{}, strat)

	_, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT", "BTCUSDT", "ETHUSDT"}, strat.seen, "bars must interleave in strict global timestamp order")
}

func TestRunTieBreaksAlphabeticallyOnEqualTimestamps(t *testing.T) {
	base := time.Now()
	strat := &recordingStrategy{}
	exec := execution.New(0, 0, 0)
	sizer := sizing.NewFixed(1000)

	r := &Runner{}
	r.AddSymbol("ETHUSDT", &sliceSource{symbol: "ETHUSDT", bars: bars("ETHUSDT", base, 0)}, 10000, 1000, 5, false, exec, sizer, noopIndicators{}, strat)
	r.AddSymbol("BTCUSDT", &sliceSource{symbol: "BTCUSDT", bars: bars("BTCUSDT", base, 0)}, 10000, 1000, 5, false, exec, sizer, noopIndicators{}, strat)

	_, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, strat.seen)
}

func TestRunEnforcesBookWideExposureCap(t *testing.T) {
	base := time.Now()
	strat := &recordingStrategy{}
	exec := execution.New(0, 0, 0)
	sizer := sizing.NewFixed(1000)

	// Cap set to the exact notional of one fixed-1000 position: once the
	// first leg opens, total exposure hits the cap and the second leg must
	// be blocked from opening for the rest of the run.
	r := &Runner{MaxOpenPositions: 1000}
	r.AddSymbol("BTCUSDT", &sliceSource{symbol: "BTCUSDT", bars: bars("BTCUSDT", base, 0, time.Minute)}, 10000, 1000, 5, false, exec, sizer, noopIndicators{}, strat)
	r.AddSymbol("ETHUSDT", &sliceSource{symbol: "ETHUSDT", bars: bars("ETHUSDT", base, 0, time.Minute)}, 10000, 1000, 5, false, exec, sizer, noopIndicators{}, strat)

	res, err := r.Run()
	require.NoError(t, err)
	totalTrades := res.PerSymbol["BTCUSDT"].Trades
	assert.Empty(t, totalTrades, "BTCUSDT should not have closed a trade in this test")

	totalExposure := 0.0
	for _, l := range r.legs {
		for _, pos := range l.portfolio.Positions {
			totalExposure += pos.SizeUSD
		}
	}
	assert.LessOrEqual(t, totalExposure, 1000.0, "the book-wide notional cap must prevent a second leg from opening once the first leg's exposure reaches it")
}
