package types

import "time"

// Fill is an immutable record of a single execution: an entry, a merge, a
// partial close or a full close.
type Fill struct {
	Timestamp    time.Time
	Side         Side
	Price        float64
	SizeUSD      float64
	Symbol       string
	Fees         float64
	SlippageCost float64
	IsEntry      bool
	Reason       string
}
