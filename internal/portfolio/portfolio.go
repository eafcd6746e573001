// Package portfolio implements Portfolio bookkeeping: opening, merging and
// closing positions, the group-scoped capacity gate, and peak-equity/
// max-drawdown tracking. Grounded in
// _examples/original_source/src/replaybt/engine/portfolio.py (the shape of
// open_position/close_position/can_open) and
// _examples/Inkedup1114-bitunixbot/internal/backtest/engine.go's
// closePosition/calculateMetrics equity bookkeeping; the group/merge
// semantics follow spec.md §4.2, not portfolio.py's older, superseded
// scale-in mechanism (see DESIGN.md).
package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"replaybt/internal/execution"
	"replaybt/internal/sizing"
	"replaybt/internal/types"
)

// EquityPoint is one sample of the equity curve, taken every time a
// position fully or partially closes.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}

// Portfolio owns the open positions, closed trades and fills for a single
// symbol (or, in a multi-asset run, a single leg of the overall book).
type Portfolio struct {
	Symbol        string
	Equity        float64
	InitialEquity float64
	PeakEquity    float64
	MaxDrawdown   float64

	Positions []*types.Position
	Trades    []types.Trade
	Fills     []types.Fill
	TotalFees float64

	EquityCurve []EquityPoint

	// MaxPositions is the per-group cap on simultaneously open positions.
	// Temporarily lowered by the Multi-Asset Runner's exposure-cap
	// enforcement; always restored after the bar it was lowered for.
	MaxPositions int

	DefaultSizeUSD    float64
	SameDirectionOnly bool

	Execution *execution.Model
	Sizer     sizing.Sizer
}

// New builds a Portfolio at its initial equity with no open positions.
func New(symbol string, initialEquity, defaultSizeUSD float64, maxPositions int, exec *execution.Model, sizer sizing.Sizer, sameDirectionOnly bool) *Portfolio {
	return &Portfolio{
		Symbol:            symbol,
		Equity:            initialEquity,
		InitialEquity:     initialEquity,
		PeakEquity:        initialEquity,
		MaxPositions:      maxPositions,
		DefaultSizeUSD:    defaultSizeUSD,
		SameDirectionOnly: sameDirectionOnly,
		Execution:         exec,
		Sizer:             sizer,
	}
}

// HasPosition reports whether any position is currently open.
func (p *Portfolio) HasPosition() bool { return len(p.Positions) > 0 }

// PositionCount returns the number of currently open positions.
func (p *Portfolio) PositionCount() int { return len(p.Positions) }

// PositionsInGroup returns the open positions tagged with group.
func (p *Portfolio) PositionsInGroup(group string) []*types.Position {
	var out []*types.Position
	for _, pos := range p.Positions {
		if pos.Group == group {
			out = append(out, pos)
		}
	}
	return out
}

// CanOpen reports whether a new position may be opened in group: the
// group's current count must be below MaxPositions.
func (p *Portfolio) CanOpen(group string) bool {
	return len(p.PositionsInGroup(group)) < p.MaxPositions
}

// directionConflict reports whether opening side in group would violate
// SameDirectionOnly given the group's existing positions.
func (p *Portfolio) directionConflict(group string, side types.Side) bool {
	if !p.SameDirectionOnly {
		return false
	}
	for _, pos := range p.PositionsInGroup(group) {
		if pos.Side != side {
			return true
		}
	}
	return false
}

// resolveSize returns ob's explicit size if set, otherwise asks the
// configured Sizer, falling back to DefaultSizeUSD if no sizer is
// configured.
func (p *Portfolio) resolveSize(ob types.OrderBase, price float64) float64 {
	if ob.SizeUSD != nil {
		return *ob.SizeUSD
	}
	if p.Sizer != nil {
		return p.Sizer.Size(p.Equity, ob.Side, price, ob.Symbol, ob.StopLossPct)
	}
	return p.DefaultSizeUSD
}

// OpenPosition opens a brand-new position at rawPrice (before slippage is
// applied, if applySlippage is true — a market fill slips, a limit fill at
// its exact resting price does not). isMaker selects the fee schedule.
// Returns an error if group/direction/capacity rules block the open; the
// caller (the Bar Processor) is expected to have already checked CanOpen
// and directionConflict and treat this as the authoritative re-check.
func (p *Portfolio) OpenPosition(bar types.Bar, ob types.OrderBase, rawPrice float64, applySlippage, isMaker bool) (types.Fill, error) {
	if !p.CanOpen(ob.Group) {
		return types.Fill{}, fmt.Errorf("portfolio: group %q at capacity (%d)", ob.Group, p.MaxPositions)
	}
	if p.directionConflict(ob.Group, ob.Side) {
		return types.Fill{}, fmt.Errorf("portfolio: group %q already holds the opposite direction", ob.Group)
	}

	entryPrice := rawPrice
	if applySlippage {
		entryPrice = p.Execution.ApplyEntrySlippage(rawPrice, ob.Side)
	}
	sizeUSD := p.resolveSize(ob, entryPrice)
	fee := p.Execution.Fee(sizeUSD, isMaker)
	p.Equity -= fee
	p.TotalFees += fee

	pos := &types.Position{
		ID:                        uuid.NewString(),
		Side:                      ob.Side,
		EntryPrice:                entryPrice,
		EntryTime:                 bar.Timestamp,
		SizeUSD:                   sizeUSD,
		Symbol:                    ob.Symbol,
		Group:                     ob.Group,
		BreakevenTrigger:          ob.BreakevenTriggerPct,
		BreakevenLock:             ob.BreakevenLockPct,
		TrailingStopPct:           ob.TrailingStopPct,
		TrailingStopActivationPct: ob.TrailingStopActivationPct,
		PartialTPPct:              ob.PartialTPPct,
		PartialTPNewTPPct:         ob.PartialTPNewTPPct,
	}
	if ob.StopLossPct > 0 {
		if ob.Side == types.Long {
			pos.StopLoss = entryPrice * (1 - ob.StopLossPct)
		} else {
			pos.StopLoss = entryPrice * (1 + ob.StopLossPct)
		}
	}
	if ob.TakeProfitPct > 0 {
		if ob.Side == types.Long {
			pos.TakeProfit = entryPrice * (1 + ob.TakeProfitPct)
		} else {
			pos.TakeProfit = entryPrice * (1 - ob.TakeProfitPct)
		}
	}
	if ob.Side == types.Long {
		pos.PositionHigh = entryPrice
	} else {
		pos.PositionLow = entryPrice
	}

	p.Positions = append(p.Positions, pos)

	fill := types.Fill{
		Timestamp: bar.Timestamp, Side: ob.Side, Price: entryPrice, SizeUSD: sizeUSD,
		Symbol: ob.Symbol, Fees: fee, IsEntry: true, Reason: "ENTRY",
	}
	p.Fills = append(p.Fills, fill)
	return fill, nil
}

// MergeIntoPosition merges a limit fill into the group's most-recently-opened
// position (weighted-average entry price, combined size), used for
// LimitOrder's MergePosition flag. If the group holds no position, the merge
// fails rather than silently opening a new one; the caller (the processor's
// pending-limit loop) treats this the same as any other not-filled limit and
// leaves the order queued for a later bar or timeout.
func (p *Portfolio) MergeIntoPosition(bar types.Bar, ob types.OrderBase, limitPrice float64, isMaker bool) (types.Fill, error) {
	existing := p.PositionsInGroup(ob.Group)
	if len(existing) == 0 {
		return types.Fill{}, fmt.Errorf("portfolio: no position in group %q to merge into", ob.Group)
	}
	pos := existing[len(existing)-1]
	if pos.Side != ob.Side {
		return types.Fill{}, fmt.Errorf("portfolio: cannot merge %s fill into %s position in group %q", ob.Side, pos.Side, ob.Group)
	}
	addSize := p.resolveSize(ob, limitPrice)
	fee := p.Execution.Fee(addSize, isMaker)
	p.Equity -= fee
	p.TotalFees += fee

	totalSize := pos.SizeUSD + addSize
	pos.EntryPrice = (pos.EntryPrice*pos.SizeUSD + limitPrice*addSize) / totalSize
	pos.SizeUSD = totalSize

	fill := types.Fill{
		Timestamp: bar.Timestamp, Side: ob.Side, Price: limitPrice, SizeUSD: addSize,
		Symbol: ob.Symbol, Fees: fee, IsEntry: true, Reason: "MERGE",
	}
	p.Fills = append(p.Fills, fill)
	return fill, nil
}

// ClosePosition closes closePct (default 1.0 when <=0) of the position at
// index in p.Positions at exitPrice, applying exit slippage unless the
// close is itself slippage-free (limit-style exits are not modeled here;
// the processor always closes through the Execution Model's exit checks,
// which already return a post-gap but pre-slippage price).
//
// index must refer to the current p.Positions slice; callers iterating and
// closing multiple positions in one bar must process indices in descending
// order so earlier indices remain valid after a removal.
func (p *Portfolio) ClosePosition(index int, exitPrice float64, bar types.Bar, reason types.ExitReason, closePct float64) (types.Trade, error) {
	if index < 0 || index >= len(p.Positions) {
		return types.Trade{}, fmt.Errorf("portfolio: close index %d out of range (%d positions)", index, len(p.Positions))
	}
	if closePct <= 0 {
		closePct = 1.0
	}
	pos := p.Positions[index]

	slippedExit := p.Execution.ApplyExitSlippage(exitPrice, pos.Side)
	closedSize := pos.SizeUSD * closePct
	fee := p.Execution.Fee(closedSize, false)

	var pnlPct float64
	if pos.IsLong() {
		pnlPct = (slippedExit - pos.EntryPrice) / pos.EntryPrice
	} else {
		pnlPct = (pos.EntryPrice - slippedExit) / pos.EntryPrice
	}
	pnlUSD := pnlPct*closedSize - fee

	p.Equity += pnlUSD
	p.TotalFees += fee
	if p.Equity > p.PeakEquity {
		p.PeakEquity = p.Equity
	}
	if p.PeakEquity > 0 {
		dd := (p.PeakEquity - p.Equity) / p.PeakEquity
		if dd > p.MaxDrawdown {
			p.MaxDrawdown = dd
		}
	}

	trade := types.Trade{
		EntryTime: pos.EntryTime, ExitTime: bar.Timestamp, Side: pos.Side,
		EntryPrice: pos.EntryPrice, ExitPrice: slippedExit, SizeUSD: closedSize,
		PnLUSD: pnlUSD, PnLPct: pnlPct, Fees: fee, Reason: reason,
		Symbol: pos.Symbol, IsPartial: closePct < 1.0, Group: pos.Group,
	}
	p.Trades = append(p.Trades, trade)
	p.Fills = append(p.Fills, types.Fill{
		Timestamp: bar.Timestamp, Side: pos.Side.Opposite(), Price: slippedExit,
		SizeUSD: closedSize, Symbol: pos.Symbol, Fees: fee, IsEntry: false, Reason: string(reason),
	})
	p.EquityCurve = append(p.EquityCurve, EquityPoint{Time: bar.Timestamp, Equity: p.Equity})

	if closePct >= 1.0 {
		p.Positions = append(p.Positions[:index], p.Positions[index+1:]...)
	} else {
		pos.SizeUSD -= closedSize
		if pos.PartialTPPct > 0 {
			pos.PartialTPDone = true
			if pos.PartialTPNewTPPct > 0 {
				if pos.IsLong() {
					pos.TakeProfit = pos.EntryPrice * (1 + pos.PartialTPNewTPPct)
				} else {
					pos.TakeProfit = pos.EntryPrice * (1 - pos.PartialTPNewTPPct)
				}
			}
		}
	}

	return trade, nil
}

// Reset restores the portfolio to its initial-equity, no-positions state.
func (p *Portfolio) Reset() {
	p.Equity = p.InitialEquity
	p.PeakEquity = p.InitialEquity
	p.MaxDrawdown = 0
	p.Positions = nil
	p.Trades = nil
	p.Fills = nil
	p.TotalFees = 0
	p.EquityCurve = nil
}
