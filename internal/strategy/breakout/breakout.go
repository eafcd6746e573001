// Package breakout implements an example trend-following Strategy: enter in
// the direction of a close breaking out past a rolling high/low channel,
// trail the stop as the move extends.
//
// Grounded in the teacher's signal-confirmation style (wait for a confirmed
// directional move before entering) and spec.md's TrailingStopPct/
// TrailingStopActivationPct order fields, exercising the engine's
// trailing-stop machinery that meanreversion's Strategy does not.
package breakout

import (
	"replaybt/internal/strategy"
	"replaybt/internal/types"
)

// Config configures one Strategy instance.
type Config struct {
	HighIndicator             string // rolling-high indicator name (e.g. an SMA of highs, or a custom channel)
	LowIndicator              string // rolling-low indicator name
	StopLossPct               float64
	TrailingStopPct           float64
	TrailingStopActivationPct float64
	WarmupBars                int
}

// Strategy goes long on a confirmed close above HighIndicator and short on a
// confirmed close below LowIndicator, then lets a trailing stop manage the
// exit instead of a fixed take-profit.
type Strategy struct {
	cfg Config
}

// New builds a breakout Strategy.
func New(cfg Config) *Strategy {
	return &Strategy{cfg: cfg}
}

func (s *Strategy) Configure(strategy.Config) {}

func (s *Strategy) OnBar(bar types.Bar, indicators map[string]float64, positions []types.Position) []types.Order {
	if len(positions) > 0 {
		return nil
	}

	high, hasHigh := indicators[s.cfg.HighIndicator]
	low, hasLow := indicators[s.cfg.LowIndicator]
	if !hasHigh || !hasLow {
		return nil
	}

	switch {
	case bar.Close > high:
		return []types.Order{&types.MarketOrder{OrderBase: types.OrderBase{
			Side:                      types.Long,
			Symbol:                    bar.Symbol,
			StopLossPct:               s.cfg.StopLossPct,
			TrailingStopPct:           s.cfg.TrailingStopPct,
			TrailingStopActivationPct: s.cfg.TrailingStopActivationPct,
		}}}
	case bar.Close < low:
		return []types.Order{&types.MarketOrder{OrderBase: types.OrderBase{
			Side:                      types.Short,
			Symbol:                    bar.Symbol,
			StopLossPct:               s.cfg.StopLossPct,
			TrailingStopPct:           s.cfg.TrailingStopPct,
			TrailingStopActivationPct: s.cfg.TrailingStopActivationPct,
		}}}
	}
	return nil
}

func (s *Strategy) OnFill(types.Fill) types.Order { return nil }

func (s *Strategy) OnExit(types.Fill, types.Trade) types.Order { return nil }

// CheckExits defers entirely to the engine's trailing-stop/stop-loss
// handling; breakout has no indicator-driven exit of its own.
func (s *Strategy) CheckExits(types.Bar, []types.Position) []strategy.ExitInstruction {
	return nil
}

func (s *Strategy) WarmupPeriods() map[string]int {
	return map[string]int{
		s.cfg.HighIndicator: s.cfg.WarmupBars,
		s.cfg.LowIndicator:  s.cfg.WarmupBars,
	}
}
