package sizing

import "replaybt/internal/types"

// EquityPct sizes a position as a fixed percentage of current equity,
// clamped to [MinSize, MaxSize] (MaxSize<=0 disables the upper clamp).
type EquityPct struct {
	Pct     float64
	MinSize float64
	MaxSize float64
}

func NewEquityPct(pct, minSize, maxSize float64) *EquityPct {
	return &EquityPct{Pct: pct, MinSize: minSize, MaxSize: maxSize}
}

func (e *EquityPct) Size(equity float64, _ types.Side, _ float64, _ string, _ float64) float64 {
	size := equity * e.Pct
	if size < e.MinSize {
		size = e.MinSize
	}
	if e.MaxSize > 0 && size > e.MaxSize {
		size = e.MaxSize
	}
	return size
}
