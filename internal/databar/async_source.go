package databar

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"replaybt/internal/types"
)

// PacedAsyncSource wraps a finite in-memory bar slice and yields one bar
// per Limiter token, giving the async Backtest Runner something genuinely
// asynchronous to drive without opening a network connection (which
// spec.md places out of scope for the core). Useful for demoing/testing
// RunAsync and for a Step Runner episode that wants to throttle replay
// speed.
type PacedAsyncSource struct {
	symbol  string
	bars    []types.Bar
	index   int
	limiter *rate.Limiter
}

// NewPacedAsyncSource builds a source that yields at most ratePerSecond
// bars per second (0 = as fast as possible, limited only by ctx).
func NewPacedAsyncSource(symbol string, bars []types.Bar, ratePerSecond float64) *PacedAsyncSource {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &PacedAsyncSource{symbol: symbol, bars: bars, limiter: limiter}
}

func (s *PacedAsyncSource) Symbol() string { return s.symbol }

func (s *PacedAsyncSource) Next(ctx context.Context) (types.Bar, bool, error) {
	if s.index >= len(s.bars) {
		return types.Bar{}, false, io.EOF
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return types.Bar{}, false, err
		}
	} else if err := ctx.Err(); err != nil {
		return types.Bar{}, false, err
	}
	bar := s.bars[s.index]
	s.index++
	return bar, true, nil
}
