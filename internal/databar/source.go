// Package databar defines the Bar source contract the Backtest Runner
// consumes. Bar ingestion proper (file formats, exchange history APIs) is
// explicitly out of the core's scope per spec.md, but the runner still
// needs something concrete to drive end to end; this package's CSV loader
// and paced async source exist for that purpose and for the test suite,
// grounded in
// _examples/Inkedup1114-bitunixbot/internal/backtest/data_loader.go and
// _examples/original_source/src/replaybt/data/providers/base.py's
// reset/has_next/next/symbol shape.
package databar

import (
	"context"

	"replaybt/internal/types"
)

// Source is a finite, synchronous stream of bars for one symbol.
type Source interface {
	Symbol() string
	Reset()
	HasNext() bool
	Next() types.Bar
}

// AsyncSource is the asynchronous counterpart the Runner's RunAsync variant
// drives; Next blocks (respecting ctx) until the next bar is available or
// the stream is exhausted.
type AsyncSource interface {
	Symbol() string
	Next(ctx context.Context) (bar types.Bar, ok bool, err error)
}
