// Package strategy defines the Strategy Adapter contract: the boundary
// between the engine core and user-supplied trading logic. The core never
// ships a "the" strategy — strategies are external collaborators per
// spec.md §6 — but it owns the interface they must satisfy.
//
// Grounded in
// _examples/original_source/src/replaybt/strategy/base.py, re-expressed
// without Python's duck-typed "a single Order or a list of Orders" return
// value: OnBar always returns a slice (possibly empty/nil), and OnFill and
// OnExit each return a single Order interface value that may be nil.
package strategy

import "replaybt/internal/types"

// Config is the subset of engine configuration a strategy may want to read
// in Configure (initial equity, default size, indicator set, etc). It is
// deliberately a thin, read-only view; strategies never get a pointer into
// engine internals.
type Config struct {
	InitialEquity     float64
	DefaultSizeUSD    float64
	MaxPositions      int
	SameDirectionOnly bool
	Indicators        map[string]string // indicator name -> type, for discovery
}

// ExitInstruction is one entry of a CheckExits result: close ClosePct
// (1.0 if zero) of the position at Index at Price, tagged Reason.
type ExitInstruction struct {
	Index    int
	Price    float64
	Reason   types.ExitReason
	ClosePct float64
}

// Strategy is the contract the Bar Processor drives once per bar, in Phase
// 4, after market/limit/stop fills and engine-driven exits have already run
// for that bar.
type Strategy interface {
	// Configure is called once before the first bar, with the resolved
	// engine configuration.
	Configure(cfg Config)

	// OnBar is called with the bar just completed, the current indicator
	// snapshot, and the currently open positions (for this symbol), and
	// returns zero or more orders to queue. The processor does not invoke
	// OnBar at all when Phase 4 is skipped for this bar (see
	// SkipSignalOnClose in the processor package).
	OnBar(bar types.Bar, indicators map[string]float64, positions []types.Position) []types.Order

	// OnFill is called immediately after an entry or merge fill (market,
	// limit or stop) and may return a single follow-up order (e.g. place a
	// stop after an entry fills), or nil. Exit fills go to OnExit instead.
	OnFill(fill types.Fill) types.Order

	// OnExit is called immediately after a position is closed (fully or
	// partially) and may return a single follow-up order, or nil.
	OnExit(fill types.Fill, trade types.Trade) types.Order

	// CheckExits is called once per bar, after engine-driven SL/TP/
	// breakeven/trailing/partial-TP checks (Phase 3) and before Phase 4's
	// signal generation, letting the strategy close positions on its own
	// criteria (e.g. an indicator-driven exit) ahead of a new entry signal.
	CheckExits(bar types.Bar, positions []types.Position) []ExitInstruction

	// WarmupPeriods reports, per indicator name, how many bars must be fed
	// before OnBar should be trusted to receive meaningful values. It is
	// advisory: no runner in this module skips or withholds bars based on
	// it, and the engine itself has no opinion on it.
	WarmupPeriods() map[string]int
}
