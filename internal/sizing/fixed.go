package sizing

import "replaybt/internal/types"

// Fixed always returns the same notional size regardless of equity.
type Fixed struct {
	SizeUSD float64
}

func NewFixed(sizeUSD float64) *Fixed { return &Fixed{SizeUSD: sizeUSD} }

func (f *Fixed) Size(_ float64, _ types.Side, _ float64, _ string, _ float64) float64 {
	return f.SizeUSD
}
