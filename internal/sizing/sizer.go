// Package sizing implements the pluggable Position sizer contract: a pure
// function from (equity, side, price, symbol, stopLossPct) to a notional
// size in quote currency. Grounded in
// _examples/original_source/src/replaybt/sizing/{base,fixed,equity,risk,kelly}.py
// and the Kelly formula in
// _examples/Inkedup1114-bitunixbot/internal/exec/executor.go's
// calculateKelly.
package sizing

import "replaybt/internal/types"

// Sizer computes the notional size (in quote currency) for a new position.
// Implementations must be pure: same inputs, same output, every call —
// the processor may call a sizer many times per bar across symbols in a
// multi-asset run.
type Sizer interface {
	Size(equity float64, side types.Side, price float64, symbol string, stopLossPct float64) float64
}
