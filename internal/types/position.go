package types

import "time"

// Position is a single open exposure in one symbol/group, identified by ID
// (a uuid). The processor's engine-exit phase locates positions by ID rather
// than by slice index: it snapshots and mutates the portfolio's position
// list and an index-based handle would go stale the moment an earlier
// position closes.
type Position struct {
	ID         string
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	SizeUSD    float64
	StopLoss   float64
	TakeProfit float64
	Symbol     string
	Group      string

	BreakevenActivated bool
	BreakevenTrigger   float64
	BreakevenLock      float64

	TrailingStopPct           float64
	TrailingStopActivationPct float64
	PositionHigh              float64
	PositionLow               float64
	TrailingStopActivated     bool

	PartialTPPct      float64
	PartialTPNewTPPct float64
	PartialTPDone     bool
}

// IsLong reports whether the position is long.
func (p *Position) IsLong() bool { return p.Side == Long }
