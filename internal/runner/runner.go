// Package runner implements the Backtest Runner: the synchronous and
// asynchronous drivers that pull bars from a databar.Source/AsyncSource and
// feed them through one symbol's processor.Processor, then hand the
// resulting Portfolio to results.Build.
//
// Grounded in
// _examples/Inkedup1114-bitunixbot/internal/backtest/engine.go's
// RunBacktest loop (open data file, iterate rows, print periodic progress),
// adapted to this module's Source/AsyncSource contract and to returning a
// results.BacktestResults instead of mutating a shared Results accumulator.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"replaybt/internal/databar"
	"replaybt/internal/processor"
	"replaybt/internal/results"
)

// ProgressFunc is called every ProgressEvery bars with the number of bars
// processed so far; nil disables progress reporting.
type ProgressFunc func(barsProcessed int)

// Runner drives a single processor.Processor to completion over a bar
// source.
type Runner struct {
	Processor    *processor.Processor
	Logger       zerolog.Logger
	ProgressEvery int
	OnProgress   ProgressFunc
}

// New builds a Runner around proc. logger may be the zero value
// (zerolog.Nop()) if the caller doesn't want log output.
func New(proc *processor.Processor, logger zerolog.Logger) *Runner {
	return &Runner{Processor: proc, Logger: logger, ProgressEvery: 10000}
}

// Run synchronously drains src bar by bar and returns the aggregated
// results. src is reset before running so a Runner can be reused across
// repeated evaluations of the same data (e.g. a parameter sweep).
func (r *Runner) Run(src databar.Source) (results.BacktestResults, error) {
	src.Reset()
	r.Processor.Reset()
	r.Processor.Portfolio.Reset()

	var start, end time.Time
	count := 0
	for src.HasNext() {
		bar := src.Next()
		if count == 0 {
			start = bar.Timestamp
		}
		end = bar.Timestamp
		r.Processor.ProcessBar(bar)
		count++
		if r.OnProgress != nil && r.ProgressEvery > 0 && count%r.ProgressEvery == 0 {
			r.OnProgress(count)
		}
	}
	r.Logger.Info().Str("symbol", src.Symbol()).Int("bars", count).Msg("backtest run complete")

	return results.Build(r.Processor.Portfolio, start, end), nil
}

// RunAsync drives src asynchronously, respecting ctx cancellation between
// bars — the same loop as Run but paced by whatever the AsyncSource's Next
// implementation blocks on (e.g. a rate.Limiter).
func (r *Runner) RunAsync(ctx context.Context, src databar.AsyncSource) (results.BacktestResults, error) {
	r.Processor.Reset()
	r.Processor.Portfolio.Reset()

	var start, end time.Time
	count := 0
	for {
		bar, ok, err := src.Next(ctx)
		if !ok {
			// io.EOF (stream exhausted) and context cancellation both end
			// the run cleanly; any other error is a genuine failure.
			if err != nil && err != io.EOF && err != context.Canceled && err != context.DeadlineExceeded {
				return results.BacktestResults{}, fmt.Errorf("runner: async source: %w", err)
			}
			break
		}
		if count == 0 {
			start = bar.Timestamp
		}
		end = bar.Timestamp
		r.Processor.ProcessBar(bar)
		count++
		if r.OnProgress != nil && r.ProgressEvery > 0 && count%r.ProgressEvery == 0 {
			r.OnProgress(count)
		}
	}
	r.Logger.Info().Str("symbol", src.Symbol()).Int("bars", count).Msg("async backtest run complete")

	return results.Build(r.Processor.Portfolio, start, end), nil
}
