// Package execution implements the Execution Model: adverse slippage, taker
// and maker fees, and the gap-protected exit/fill predicates the Bar
// Processor drives each phase. Grounded in
// _examples/original_source/src/replaybt/engine/execution.py, extended with
// the trailing-stop ratchet and stop-trigger predicate spec.md §4.1
// describes but that reference file does not show in full.
package execution

import "replaybt/internal/types"

// Model holds the constant cost parameters applied uniformly to every fill.
// Like the teacher's feature calculators it is a small, cheap-to-construct
// value used from a single goroutine per backtest run; no internal locking.
type Model struct {
	Slippage float64
	TakerFee float64
	MakerFee float64
}

// New builds a Model with the given slippage and fee rates, stored as
// passed: zero values mean no slippage and no fees.
func New(slippage, takerFee, makerFee float64) *Model {
	return &Model{Slippage: slippage, TakerFee: takerFee, MakerFee: makerFee}
}

// ApplyEntrySlippage moves a candidate entry price against the position:
// higher for a long entry, lower for a short entry.
func (m *Model) ApplyEntrySlippage(price float64, side types.Side) float64 {
	if side == types.Long {
		return price * (1 + m.Slippage)
	}
	return price * (1 - m.Slippage)
}

// ApplyExitSlippage moves a candidate exit price against the position:
// lower for a long exit, higher for a short exit.
func (m *Model) ApplyExitSlippage(price float64, side types.Side) float64 {
	if side == types.Long {
		return price * (1 - m.Slippage)
	}
	return price * (1 + m.Slippage)
}

// Fee returns the fee owed on a notional trade of sizeUSD.
func (m *Model) Fee(sizeUSD float64, isMaker bool) float64 {
	if isMaker {
		return sizeUSD * m.MakerFee
	}
	return sizeUSD * m.TakerFee
}

// CheckExit evaluates stop-loss/take-profit/breakeven/trailing-stop exits
// for an open position against the current bar, in gap-protection-first
// order: an opening gap through a level always wins over an intrabar touch
// at the same level, and on either check stop-loss is evaluated before
// take-profit so a bar that brackets both levels exits via the protective
// side, never the profitable one.
//
// Breakeven and trailing-stop state on pos are updated in place before the
// exit check runs, exactly once per bar, regardless of whether an exit
// fires.
func (m *Model) CheckExit(pos *types.Position, bar types.Bar) (exitPrice float64, reason types.ExitReason, ok bool) {
	m.updateBreakeven(pos, bar)
	m.updateTrailingStop(pos, bar)

	if pos.IsLong() {
		return m.checkExitLong(pos, bar)
	}
	return m.checkExitShort(pos, bar)
}

func (m *Model) updateBreakeven(pos *types.Position, bar types.Bar) {
	if pos.BreakevenActivated || pos.BreakevenTrigger <= 0 {
		return
	}
	if pos.IsLong() {
		triggerPrice := pos.EntryPrice * (1 + pos.BreakevenTrigger)
		if bar.High >= triggerPrice {
			pos.StopLoss = pos.EntryPrice * (1 + pos.BreakevenLock)
			pos.BreakevenActivated = true
		}
		return
	}
	triggerPrice := pos.EntryPrice * (1 - pos.BreakevenTrigger)
	if bar.Low <= triggerPrice {
		pos.StopLoss = pos.EntryPrice * (1 - pos.BreakevenLock)
		pos.BreakevenActivated = true
	}
}

// updateTrailingStop ratchets pos.StopLoss toward the position's favorable
// excursion. The stop only ever moves in the position's favor; it never
// relaxes back toward entry once activated.
func (m *Model) updateTrailingStop(pos *types.Position, bar types.Bar) {
	if pos.TrailingStopPct <= 0 {
		return
	}
	if pos.IsLong() {
		if bar.High > pos.PositionHigh {
			pos.PositionHigh = bar.High
		}
		if !pos.TrailingStopActivated {
			activation := pos.EntryPrice * (1 + pos.TrailingStopActivationPct)
			if pos.PositionHigh >= activation {
				pos.TrailingStopActivated = true
			} else {
				return
			}
		}
		candidate := pos.PositionHigh * (1 - pos.TrailingStopPct)
		if candidate > pos.StopLoss {
			pos.StopLoss = candidate
		}
		return
	}

	if pos.PositionLow == 0 || bar.Low < pos.PositionLow {
		pos.PositionLow = bar.Low
	}
	if !pos.TrailingStopActivated {
		activation := pos.EntryPrice * (1 - pos.TrailingStopActivationPct)
		if pos.PositionLow <= activation {
			pos.TrailingStopActivated = true
		} else {
			return
		}
	}
	candidate := pos.PositionLow * (1 + pos.TrailingStopPct)
	if candidate < pos.StopLoss || pos.StopLoss == 0 {
		pos.StopLoss = candidate
	}
}

func (m *Model) checkExitLong(pos *types.Position, bar types.Bar) (float64, types.ExitReason, bool) {
	slReason := breakevenOrStopReason(pos, true)
	if pos.StopLoss > 0 && bar.Open <= pos.StopLoss {
		return bar.Open, gapReason(slReason), true
	}
	if pos.TakeProfit > 0 && bar.Open >= pos.TakeProfit {
		return bar.Open, gapReason(types.ExitTakeProfit), true
	}
	if pos.StopLoss > 0 && bar.Low <= pos.StopLoss {
		return pos.StopLoss, slReason, true
	}
	if pos.TakeProfit > 0 && bar.High >= pos.TakeProfit {
		return pos.TakeProfit, types.ExitTakeProfit, true
	}
	return 0, "", false
}

func (m *Model) checkExitShort(pos *types.Position, bar types.Bar) (float64, types.ExitReason, bool) {
	slReason := breakevenOrStopReason(pos, false)
	if pos.StopLoss > 0 && bar.Open >= pos.StopLoss {
		return bar.Open, gapReason(slReason), true
	}
	if pos.TakeProfit > 0 && bar.Open <= pos.TakeProfit {
		return bar.Open, gapReason(types.ExitTakeProfit), true
	}
	if pos.StopLoss > 0 && bar.High >= pos.StopLoss {
		return pos.StopLoss, slReason, true
	}
	if pos.TakeProfit > 0 && bar.Low <= pos.TakeProfit {
		return pos.TakeProfit, types.ExitTakeProfit, true
	}
	return 0, "", false
}

// breakevenOrStopReason distinguishes a stop-loss hit that is actually a
// breakeven-activated stop from a plain trailing or original stop-loss.
func breakevenOrStopReason(pos *types.Position, _ bool) types.ExitReason {
	if pos.BreakevenActivated {
		return types.ExitBreakeven
	}
	if pos.TrailingStopActivated {
		return types.ExitTrailingStop
	}
	return types.ExitStopLoss
}

func gapReason(base types.ExitReason) types.ExitReason {
	switch base {
	case types.ExitStopLoss:
		return types.ExitStopLossGap
	case types.ExitBreakeven:
		return types.ExitBreakevenGap
	case types.ExitTrailingStop:
		return types.ExitTrailingStopGap
	case types.ExitTakeProfit:
		return types.ExitTakeProfitGap
	default:
		return base
	}
}

// CheckLimitFill reports whether a resting limit order would fill on this
// bar, and at what price. A long limit fills when the bar's low reaches
// down to the limit; a short limit fills when the bar's high reaches up to
// it. A bar that opens already past the limit in the favorable direction
// fills at the open (gap-through), since the order could have been filled
// at a better price than it asked for; otherwise it fills at the limit
// price itself.
func (m *Model) CheckLimitFill(limitPrice float64, side types.Side, bar types.Bar) (float64, bool) {
	if side == types.Long {
		if bar.Open < limitPrice {
			return bar.Open, true
		}
		if bar.Low <= limitPrice {
			return limitPrice, true
		}
		return 0, false
	}
	if bar.Open > limitPrice {
		return bar.Open, true
	}
	if bar.High >= limitPrice {
		return limitPrice, true
	}
	return 0, false
}

// CheckStopTrigger reports whether a resting stop order would trigger on
// this bar, and the raw (pre-slippage) trigger price. A long stop triggers
// when price rises to meet it; a short stop triggers when price falls to
// meet it. A bar that gaps through the stop triggers at the open, not the
// stop price, since a stop-market order cannot get price priority over a
// gap.
func (m *Model) CheckStopTrigger(stopPrice float64, side types.Side, bar types.Bar) (float64, bool) {
	if side == types.Long {
		if bar.Open >= stopPrice {
			return bar.Open, true
		}
		if bar.High >= stopPrice {
			return stopPrice, true
		}
		return 0, false
	}
	if bar.Open <= stopPrice {
		return bar.Open, true
	}
	if bar.Low <= stopPrice {
		return stopPrice, true
	}
	return 0, false
}
