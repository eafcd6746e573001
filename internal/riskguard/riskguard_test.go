package riskguard

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxDrawdownTripsOnceThresholdBreached(t *testing.T) {
	g := New(Config{MaxDrawdownPct: 0.1}, 10000, zerolog.Nop())

	g.OnBar(10000)
	assert.False(t, g.Tripped())

	g.OnBar(11000) // new peak
	assert.False(t, g.Tripped())

	g.OnBar(9899) // down >10% from peak of 11000
	require.True(t, g.Tripped())
	assert.Equal(t, "max_drawdown", g.TrippedReason())
}

func TestMaxDrawdownDisabledWhenZero(t *testing.T) {
	g := New(Config{MaxDrawdownPct: 0}, 10000, zerolog.Nop())
	g.OnBar(1)
	assert.False(t, g.Tripped())
}

func TestWindowLossResetsEveryBarsPerWindow(t *testing.T) {
	g := New(Config{MaxWindowLossPct: 0.05, BarsPerWindow: 3}, 10000, zerolog.Nop())

	g.OnBar(9800) // bar 1: -2% within window, not tripped
	assert.False(t, g.Tripped())
	g.OnBar(9400) // bar 2: -6% within window, tripped
	assert.True(t, g.Tripped())

	g.OnBar(9400) // bar 3: window resets to this equity at window boundary
	assert.False(t, g.Tripped(), "the window reset on this bar; loss is measured against the new window start")

	g.OnBar(9000) // bar 1 of new window: down from 9400, well under 5%? check exact
	// (9400-9000)/9400 ≈ 4.26%, under the 5% threshold
	assert.False(t, g.Tripped())
}

func TestWindowLossNeverTripsWithoutBarsPerWindow(t *testing.T) {
	g := New(Config{MaxWindowLossPct: 0.01, BarsPerWindow: 0}, 10000, zerolog.Nop())
	g.OnBar(1)
	assert.False(t, g.Tripped(), "BarsPerWindow=0 must disable the window-loss check regardless of MaxWindowLossPct")
}

func TestResetRestoresInitialState(t *testing.T) {
	g := New(Config{MaxDrawdownPct: 0.1}, 10000, zerolog.Nop())
	g.OnBar(11000)
	g.OnBar(9000)
	require.True(t, g.Tripped())

	g.Reset(5000)
	assert.False(t, g.Tripped())
	g.OnBar(5000)
	assert.False(t, g.Tripped())
}
