package types

import "time"

// Trade is an immutable record of a closed (or partially closed) position.
type Trade struct {
	EntryTime  time.Time
	ExitTime   time.Time
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	SizeUSD    float64
	PnLUSD     float64
	PnLPct     float64
	Fees       float64
	Reason     ExitReason
	Symbol     string
	IsPartial  bool
	Group      string
}
