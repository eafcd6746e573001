// Package meanreversion implements an example mean-reversion Strategy: enter
// against a stretched deviation from a moving-average baseline, exit once
// price closes back at (or beyond) the entry price, or via the engine's
// take-profit/stop-loss.
//
// Grounded in the teacher's OVIRXStrategy/MeanReversionStrategy
// deviation-band entry logic and
// _examples/original_source/examples/02_declarative_strategy.py's
// indicator-driven entry/exit shape, re-expressed as a concrete Go Strategy
// instead of a JSON-declared one.
package meanreversion

import (
	"replaybt/internal/strategy"
	"replaybt/internal/types"
)

// Config configures one Strategy instance.
type Config struct {
	BaselineIndicator string  // name of the SMA/EMA indicator used as the reversion baseline
	EntryDeviationPct float64 // enter once price deviates this far from baseline
	TakeProfitPct     float64
	StopLossPct       float64
	WarmupBars        int // bars the baseline indicator needs before it is trusted
}

// Strategy enters long when price closes EntryDeviationPct below its
// baseline and short when it closes EntryDeviationPct above, on the
// expectation that price reverts toward the baseline. It exits via
// engine-managed take-profit/stop-loss plus a CheckExits override that
// closes a position once price closes back at or beyond its entry price.
type Strategy struct {
	cfg Config
}

// New builds a mean-reversion Strategy. Position sizing is delegated to
// whichever sizing.Sizer the portfolio is configured with; orders leave
// SizeUSD nil so the engine resolves it.
func New(cfg Config) *Strategy {
	return &Strategy{cfg: cfg}
}

func (s *Strategy) Configure(strategy.Config) {}

func (s *Strategy) OnBar(bar types.Bar, indicators map[string]float64, positions []types.Position) []types.Order {
	if len(positions) > 0 {
		return nil
	}

	baseline, ok := indicators[s.cfg.BaselineIndicator]
	if !ok || baseline <= 0 {
		return nil
	}

	deviation := (bar.Close - baseline) / baseline
	switch {
	case deviation <= -s.cfg.EntryDeviationPct:
		return []types.Order{&types.MarketOrder{OrderBase: types.OrderBase{
			Side:          types.Long,
			Symbol:        bar.Symbol,
			TakeProfitPct: s.cfg.TakeProfitPct,
			StopLossPct:   s.cfg.StopLossPct,
		}}}
	case deviation >= s.cfg.EntryDeviationPct:
		return []types.Order{&types.MarketOrder{OrderBase: types.OrderBase{
			Side:          types.Short,
			Symbol:        bar.Symbol,
			TakeProfitPct: s.cfg.TakeProfitPct,
			StopLossPct:   s.cfg.StopLossPct,
		}}}
	}
	return nil
}

func (s *Strategy) OnFill(types.Fill) types.Order { return nil }

func (s *Strategy) OnExit(types.Fill, types.Trade) types.Order { return nil }

// CheckExits closes any open position once the bar closes at or beyond its
// entry price (at or above for a long, at or below for a short). It runs
// after the engine's own SL/TP checks for that bar.
func (s *Strategy) CheckExits(bar types.Bar, positions []types.Position) []strategy.ExitInstruction {
	var out []strategy.ExitInstruction
	for i, pos := range positions {
		reverted := false
		if pos.IsLong() && bar.Close >= pos.EntryPrice {
			reverted = true
		} else if !pos.IsLong() && bar.Close <= pos.EntryPrice {
			reverted = true
		}
		if reverted {
			out = append(out, strategy.ExitInstruction{
				Index:  i,
				Price:  bar.Close,
				Reason: types.ExitSignal,
			})
		}
	}
	return out
}

func (s *Strategy) WarmupPeriods() map[string]int {
	return map[string]int{s.cfg.BaselineIndicator: s.cfg.WarmupBars}
}
