package sizing

import "replaybt/internal/types"

// RiskPct sizes a position so that a stop-loss hit loses at most RiskPct of
// equity: size = (equity * RiskPct) / stopLossPct. When the order carries no
// stop_loss_pct, DefaultSLPct is used instead so the sizer never divides by
// zero.
type RiskPct struct {
	RiskPct      float64
	MinSize      float64
	MaxSize      float64
	DefaultSLPct float64
}

func NewRiskPct(riskPct, minSize, maxSize, defaultSLPct float64) *RiskPct {
	return &RiskPct{RiskPct: riskPct, MinSize: minSize, MaxSize: maxSize, DefaultSLPct: defaultSLPct}
}

func (r *RiskPct) Size(equity float64, _ types.Side, _ float64, _ string, stopLossPct float64) float64 {
	sl := stopLossPct
	if sl <= 0 {
		sl = r.DefaultSLPct
	}
	size := (equity * r.RiskPct) / sl
	if size < r.MinSize {
		size = r.MinSize
	}
	if r.MaxSize > 0 && size > r.MaxSize {
		size = r.MaxSize
	}
	return size
}
