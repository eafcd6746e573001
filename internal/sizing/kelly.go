package sizing

import (
	"fmt"

	"replaybt/internal/types"
)

// Kelly sizes positions using a fractional Kelly criterion:
//
//	kellyFraction = winRate - (1-winRate)/payoffRatio, payoffRatio = avgWin/avgLoss
//	size          = clamp(equity * kellyFraction * Fraction, MinSize, MaxSize)
//	size          = min(size, equity * MaxEquityPct)
//
// winRate/avgWin/avgLoss describe the strategy's historical performance and
// are supplied by the caller (typically refreshed from the running Results);
// this sizer does not compute them itself. Grounded in
// _examples/original_source/src/replaybt/sizing/kelly.py and the
// calculateKelly half-Kelly formula in
// _examples/Inkedup1114-bitunixbot/internal/exec/executor.go.
type Kelly struct {
	WinRate      float64
	AvgWin       float64
	AvgLoss      float64
	Fraction     float64 // e.g. 0.5 for half-Kelly
	MinSize      float64
	MaxSize      float64
	MaxEquityPct float64 // hard cap, 0 disables
}

// NewKelly validates its inputs the way the reference sizer does: a Kelly
// sizer built from nonsensical backtest statistics (a win rate outside
// (0,1), a non-positive average win/loss, or a non-positive fraction) is a
// configuration error, not a runtime one, so it is rejected at construction.
func NewKelly(winRate, avgWin, avgLoss, fraction, minSize, maxSize, maxEquityPct float64) (*Kelly, error) {
	if winRate <= 0 || winRate >= 1 {
		return nil, fmt.Errorf("sizing: kelly win_rate must be in (0,1), got %v", winRate)
	}
	if avgWin <= 0 {
		return nil, fmt.Errorf("sizing: kelly avg_win must be positive, got %v", avgWin)
	}
	if avgLoss <= 0 {
		return nil, fmt.Errorf("sizing: kelly avg_loss must be positive, got %v", avgLoss)
	}
	if fraction <= 0 {
		return nil, fmt.Errorf("sizing: kelly fraction must be positive, got %v", fraction)
	}
	return &Kelly{
		WinRate: winRate, AvgWin: avgWin, AvgLoss: avgLoss, Fraction: fraction,
		MinSize: minSize, MaxSize: maxSize, MaxEquityPct: maxEquityPct,
	}, nil
}

// KellyFraction returns the raw (unscaled) Kelly fraction for this sizer's
// statistics, clamped to [0, 1].
func (k *Kelly) KellyFraction() float64 {
	payoffRatio := k.AvgWin / k.AvgLoss
	f := k.WinRate - (1-k.WinRate)/payoffRatio
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func (k *Kelly) Size(equity float64, _ types.Side, _ float64, _ string, _ float64) float64 {
	size := equity * k.KellyFraction() * k.Fraction
	if size < k.MinSize {
		size = k.MinSize
	}
	if k.MaxSize > 0 && size > k.MaxSize {
		size = k.MaxSize
	}
	if k.MaxEquityPct > 0 {
		if cap := equity * k.MaxEquityPct; size > cap {
			size = cap
		}
	}
	return size
}
