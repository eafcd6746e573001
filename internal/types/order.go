package types

import "fmt"

// OrderKind discriminates the Order sum type. Order is intentionally not a
// duck-typed "has a limit_price" interface: the processor always resolves a
// concrete kind via a type switch before acting on an order, matching the
// variants original replaybt modeled as dataclass subclasses.
type OrderKind uint8

const (
	KindMarket OrderKind = iota
	KindLimit
	KindStop
	KindCancelPendingLimits
)

// OrderBase carries the fields common to every concrete order variant except
// CancelPendingLimitsOrder, which is a bare sentinel.
type OrderBase struct {
	Side   Side
	Symbol string

	// SizeUSD is the notional size in quote currency. Nil means "ask the
	// configured position sizer".
	SizeUSD *float64

	// Group partitions positions for independent position-count and
	// same-direction enforcement. Empty string means the default group.
	Group string

	TakeProfitPct float64
	StopLossPct   float64

	BreakevenTriggerPct float64 // 0 disables breakeven
	BreakevenLockPct    float64

	TrailingStopPct           float64 // 0 disables trailing
	TrailingStopActivationPct float64

	PartialTPPct      float64 // fraction of position closed at take-profit, 0 disables
	PartialTPNewTPPct float64 // new TP% applied to the remainder after a partial close

	// CancelPendingLimits clears both the pending-limits and pending-stops
	// queues before this order is queued, independent of the
	// CancelPendingLimitsOrder sentinel.
	CancelPendingLimits bool
}

// Validate rejects stop-loss/take-profit/breakeven/trailing combinations
// that cannot be made mutually exclusive given the order's side: every
// percentage must move the corresponding level strictly toward its own
// side of entry (no negative or >=100% percentages, which would invert a
// level across entry and collide with the opposite bracket), and a
// breakeven lock or trailing-stop activation level can never promise more
// favorable than the order's own take-profit target.
func (ob OrderBase) Validate() error {
	pcts := map[string]float64{
		"take_profit_pct":              ob.TakeProfitPct,
		"stop_loss_pct":                ob.StopLossPct,
		"breakeven_trigger_pct":        ob.BreakevenTriggerPct,
		"breakeven_lock_pct":           ob.BreakevenLockPct,
		"trailing_stop_pct":            ob.TrailingStopPct,
		"trailing_stop_activation_pct": ob.TrailingStopActivationPct,
		"partial_tp_pct":               ob.PartialTPPct,
		"partial_tp_new_tp_pct":        ob.PartialTPNewTPPct,
	}
	for name, pct := range pcts {
		if pct < 0 || pct >= 1.0 {
			return fmt.Errorf("order: %s must be in [0, 1), got %g", name, pct)
		}
	}
	if ob.TakeProfitPct > 0 {
		if ob.BreakevenLockPct > ob.TakeProfitPct {
			return fmt.Errorf("order: breakeven_lock_pct (%g) exceeds take_profit_pct (%g)", ob.BreakevenLockPct, ob.TakeProfitPct)
		}
		if ob.TrailingStopActivationPct > ob.TakeProfitPct {
			return fmt.Errorf("order: trailing_stop_activation_pct (%g) exceeds take_profit_pct (%g)", ob.TrailingStopActivationPct, ob.TakeProfitPct)
		}
	}
	return nil
}

// Order is implemented by MarketOrder, LimitOrder, StopOrder and
// CancelPendingLimitsOrder.
type Order interface {
	Kind() OrderKind
}

// MarketOrder fills at next bar's open (subject to entry slippage).
type MarketOrder struct {
	OrderBase
}

func (o *MarketOrder) Kind() OrderKind { return KindMarket }

// LimitOrder queues a resting limit order, filled without slippage once the
// bar's range touches LimitPrice.
type LimitOrder struct {
	OrderBase
	LimitPrice  float64
	TimeoutBars int // 0 = never times out
	UseMakerFee bool
	// MinPositions gates this limit: it is only eligible to fill while the
	// group already holds at least this many open positions (used for
	// scale-in style limits that should not open a brand new position).
	MinPositions int
	// MergePosition, if true and a position already exists in Group, merges
	// the fill into that position (weighted-average entry) instead of
	// opening a new one.
	MergePosition bool
}

func (o *LimitOrder) Kind() OrderKind { return KindLimit }

// StopOrder queues a resting stop (stop-market) order, triggered when the
// bar's range crosses StopPrice; entry slippage applies after the trigger.
type StopOrder struct {
	OrderBase
	StopPrice   float64
	TimeoutBars int // 0 = never times out
}

func (o *StopOrder) Kind() OrderKind { return KindStop }

// CancelPendingLimitsOrder is a sentinel return value: clear every pending
// limit and stop order without queuing anything new.
type CancelPendingLimitsOrder struct{}

func (CancelPendingLimitsOrder) Kind() OrderKind { return KindCancelPendingLimits }
