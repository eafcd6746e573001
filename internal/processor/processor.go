// Package processor implements the Bar Processor: the four-phase per-bar
// execution loop (market fills, limit fills, stop fills, exits/partial-TP,
// strategy-initiated exits, indicator update, signal generation) that
// enforces T+1 execution discipline — an order a strategy returns from a
// bar's signal phase can only fill starting with the following bar.
//
// Grounded in
// _examples/original_source/src/replaybt/engine/processor.py's
// BarProcessor.process_bar, adapted from Python's snapshot-then-mutate
// iteration (safe there only because CPython lists tolerate in-place
// truncation) to Go's identity-stable rebuild: pending-limit/pending-stop
// queues are drained into a fresh slice each phase, and positions closed by
// engine exits (Phase 3) are located by Position.ID rather than by their
// snapshot index, since that index can go stale the moment an earlier
// position closes. Strategy exit instructions (Phase 3.5) carry the
// strategy's own indices and are applied in descending index order.
package processor

import (
	"sort"

	"replaybt/internal/execution"
	"replaybt/internal/portfolio"
	"replaybt/internal/strategy"
	"replaybt/internal/types"
)

// IndicatorManager is the subset of indicators.Manager the processor needs.
// Declaring it locally (rather than importing the concrete type) keeps the
// indicator registry's construction details out of the processor's contract
// surface, matching spec.md §6's "the registry's internals are not the
// processor's concern" framing.
type IndicatorManager interface {
	Update(bar types.Bar)
	Snapshot() map[string]float64
	Reset()
}

// Config controls the processor's cross-phase behavior.
type Config struct {
	// SkipSignalOnClose, when true (as NewDefault sets it), skips Phase 4's OnBar
	// call for a bar on which any position was fully closed. Indicators
	// still update regardless.
	SkipSignalOnClose bool
}

type pendingLimit struct {
	order       *types.LimitOrder
	barsElapsed int
}

type pendingStop struct {
	order       *types.StopOrder
	barsElapsed int
}

// BarResult reports everything that happened while processing one bar.
type BarResult struct {
	Fills  []types.Fill
	Trades []types.Trade
	Orders []types.Order // newly queued orders, for inspection/step-mode info
}

// Processor drives one symbol's Portfolio through the four-phase loop.
// Safe for use from a single goroutine; the Multi-Asset Runner owns one
// Processor per symbol and never calls into one concurrently.
type Processor struct {
	Portfolio  *portfolio.Portfolio
	Indicators IndicatorManager
	Execution  *execution.Model
	Strategy   strategy.Strategy
	Config     Config

	pendingMarket *types.MarketOrder
	pendingLimits []*pendingLimit
	pendingStops  []*pendingStop
}

// New builds a Processor with cfg as given; the zero Config leaves
// SkipSignalOnClose off. Use NewDefault for the reference engine's default.
func New(pf *portfolio.Portfolio, ind IndicatorManager, exec *execution.Model, strat strategy.Strategy, cfg Config) *Processor {
	return &Processor{Portfolio: pf, Indicators: ind, Execution: exec, Strategy: strat, Config: cfg}
}

// NewDefault builds a Processor with SkipSignalOnClose enabled, the
// reference engine's default.
func NewDefault(pf *portfolio.Portfolio, ind IndicatorManager, exec *execution.Model, strat strategy.Strategy) *Processor {
	return New(pf, ind, exec, strat, Config{SkipSignalOnClose: true})
}

// ProcessBar runs the full four-phase loop for one completed bar and
// returns everything that happened.
func (p *Processor) ProcessBar(bar types.Bar) BarResult {
	var result BarResult

	p.phase1Market(bar, &result)
	p.phase1bLimits(bar, &result)
	p.phase2Stops(bar, &result)
	closedFull := p.phase3Exits(bar, &result)
	closedFull = p.phase35StrategyExits(bar, &result) || closedFull

	p.Indicators.Update(bar)
	if !(closedFull && p.Config.SkipSignalOnClose) {
		p.phase4Signal(bar, &result)
	}

	return result
}

func (p *Processor) phase1Market(bar types.Bar, result *BarResult) {
	if p.pendingMarket == nil {
		return
	}
	order := p.pendingMarket
	p.pendingMarket = nil
	ob := order.OrderBase
	fill, err := p.Portfolio.OpenPosition(bar, ob, bar.Open, true, false)
	if err != nil {
		return
	}
	result.Fills = append(result.Fills, fill)
	p.queueOrder(p.Strategy.OnFill(fill), result)
}

func (p *Processor) phase1bLimits(bar types.Bar, result *BarResult) {
	snapshot := p.pendingLimits
	p.pendingLimits = nil

	for _, pl := range snapshot {
		ob := pl.order.OrderBase
		eligible := pl.order.MinPositions <= 0 || len(p.Portfolio.PositionsInGroup(ob.Group)) >= pl.order.MinPositions
		filled := false

		if eligible {
			if price, ok := p.Execution.CheckLimitFill(pl.order.LimitPrice, ob.Side, bar); ok {
				var fill types.Fill
				var err error
				if pl.order.MergePosition {
					fill, err = p.Portfolio.MergeIntoPosition(bar, ob, price, pl.order.UseMakerFee)
				} else {
					fill, err = p.Portfolio.OpenPosition(bar, ob, price, false, pl.order.UseMakerFee)
				}
				if err == nil {
					filled = true
					result.Fills = append(result.Fills, fill)
					if pl.order.CancelPendingLimits {
						p.pendingLimits = nil
						p.pendingStops = nil
					}
					p.queueOrder(p.Strategy.OnFill(fill), result)
				}
			}
		}

		if !filled {
			pl.barsElapsed++
			if pl.order.TimeoutBars > 0 && pl.barsElapsed >= pl.order.TimeoutBars {
				continue
			}
			p.pendingLimits = append(p.pendingLimits, pl)
		}
	}
}

func (p *Processor) phase2Stops(bar types.Bar, result *BarResult) {
	snapshot := p.pendingStops
	p.pendingStops = nil

	for _, ps := range snapshot {
		ob := ps.order.OrderBase
		filled := false

		if price, ok := p.Execution.CheckStopTrigger(ps.order.StopPrice, ob.Side, bar); ok {
			fill, err := p.Portfolio.OpenPosition(bar, ob, price, true, false)
			if err == nil {
				filled = true
				result.Fills = append(result.Fills, fill)
				if ps.order.CancelPendingLimits {
					p.pendingLimits = nil
					p.pendingStops = nil
				}
				p.queueOrder(p.Strategy.OnFill(fill), result)
			}
		}

		if !filled {
			ps.barsElapsed++
			if ps.order.TimeoutBars > 0 && ps.barsElapsed >= ps.order.TimeoutBars {
				continue
			}
			p.pendingStops = append(p.pendingStops, ps)
		}
	}
}

// phase3Exits runs the engine-driven stop-loss/take-profit/breakeven/
// trailing-stop/partial-TP checks and returns whether any position was
// fully (not partially) closed this bar.
func (p *Processor) phase3Exits(bar types.Bar, result *BarResult) bool {
	snapshot := append([]*types.Position(nil), p.Portfolio.Positions...)
	closedFull := false

	for _, pos := range snapshot {
		price, reason, ok := p.Execution.CheckExit(pos, bar)
		if !ok {
			continue
		}
		closePct := 1.0
		finalReason := reason
		if reason.Base() == types.ExitTakeProfit && pos.PartialTPPct > 0 && !pos.PartialTPDone {
			closePct = pos.PartialTPPct
			finalReason = types.ExitPartialTP
		}

		idx := p.indexOf(pos.ID)
		if idx < 0 {
			continue
		}
		trade, err := p.Portfolio.ClosePosition(idx, price, bar, finalReason, closePct)
		if err != nil {
			continue
		}
		result.Trades = append(result.Trades, trade)
		if closePct >= 1.0 {
			closedFull = true
		}
		exitFill := p.Portfolio.Fills[len(p.Portfolio.Fills)-1]
		p.queueOrder(p.Strategy.OnExit(exitFill, trade), result)
	}
	return closedFull
}

// phase35StrategyExits runs the strategy's own CheckExits after engine
// exits, processing the returned instructions in descending index order so
// an earlier close never invalidates a later instruction's index.
func (p *Processor) phase35StrategyExits(bar types.Bar, result *BarResult) bool {
	positionsVal := p.positionValues()
	instructions := p.Strategy.CheckExits(bar, positionsVal)
	if len(instructions) == 0 {
		return false
	}
	sort.Slice(instructions, func(i, j int) bool { return instructions[i].Index > instructions[j].Index })

	closedFull := false
	for _, instr := range instructions {
		if instr.Index < 0 || instr.Index >= len(p.Portfolio.Positions) {
			continue
		}
		closePct := instr.ClosePct
		if closePct <= 0 {
			closePct = 1.0
		}
		trade, err := p.Portfolio.ClosePosition(instr.Index, instr.Price, bar, instr.Reason, closePct)
		if err != nil {
			continue
		}
		result.Trades = append(result.Trades, trade)
		if closePct >= 1.0 {
			closedFull = true
		}
		exitFill := p.Portfolio.Fills[len(p.Portfolio.Fills)-1]
		p.queueOrder(p.Strategy.OnExit(exitFill, trade), result)
	}
	return closedFull
}

func (p *Processor) phase4Signal(bar types.Bar, result *BarResult) {
	snapshot := p.Indicators.Snapshot()
	orders := p.Strategy.OnBar(bar, snapshot, p.positionValues())
	for _, o := range orders {
		p.queueOrder(o, result)
	}
}

func (p *Processor) positionValues() []types.Position {
	out := make([]types.Position, len(p.Portfolio.Positions))
	for i, pos := range p.Portfolio.Positions {
		out[i] = *pos
	}
	return out
}

func (p *Processor) indexOf(id string) int {
	for i, pos := range p.Portfolio.Positions {
		if pos.ID == id {
			return i
		}
	}
	return -1
}

// queueOrder applies the strategy-return-value/follow-up-order contract: a
// nil order is a no-op; CancelPendingLimitsOrder clears both queues; any
// other order's own CancelPendingLimits flag clears the queues first; a
// MarketOrder overwrites any still-pending market order ("last one wins");
// LimitOrder/StopOrder append to their respective queues.
func (p *Processor) queueOrder(order types.Order, result *BarResult) {
	if order == nil {
		return
	}
	switch o := order.(type) {
	case types.CancelPendingLimitsOrder:
		p.pendingLimits = nil
		p.pendingStops = nil
	case *types.CancelPendingLimitsOrder:
		p.pendingLimits = nil
		p.pendingStops = nil
	case *types.StopOrder:
		if o.Validate() != nil {
			return
		}
		if o.CancelPendingLimits {
			p.pendingLimits = nil
			p.pendingStops = nil
		}
		p.pendingStops = append(p.pendingStops, &pendingStop{order: o})
		result.Orders = append(result.Orders, o)
	case *types.LimitOrder:
		if o.Validate() != nil {
			return
		}
		if o.CancelPendingLimits {
			p.pendingLimits = nil
			p.pendingStops = nil
		}
		p.pendingLimits = append(p.pendingLimits, &pendingLimit{order: o})
		result.Orders = append(result.Orders, o)
	case *types.MarketOrder:
		if o.Validate() != nil {
			return
		}
		if o.CancelPendingLimits {
			p.pendingLimits = nil
			p.pendingStops = nil
		}
		p.pendingMarket = o
		result.Orders = append(result.Orders, o)
	}
}

// Reset clears all pending order queues. The portfolio and indicators are
// reset separately by the caller (they outlive the processor in the
// Step Runner's reuse-across-episodes case).
func (p *Processor) Reset() {
	p.pendingMarket = nil
	p.pendingLimits = nil
	p.pendingStops = nil
}

// HasPendingOrders reports whether anything is queued for a future bar.
func (p *Processor) HasPendingOrders() bool {
	return p.pendingMarket != nil || len(p.pendingLimits) > 0 || len(p.pendingStops) > 0
}

// QueueOrder exposes the follow-up-order contract to runners that accept an
// order directly from an external caller (the Step Runner's action
// parameter), rather than from a Strategy callback.
func (p *Processor) QueueOrder(order types.Order) {
	var discard BarResult
	p.queueOrder(order, &discard)
}
