package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replaybt/internal/types"
)

func TestFixedSizer(t *testing.T) {
	s := NewFixed(500)
	assert.Equal(t, 500.0, s.Size(100000, types.Long, 50, "X", 0))
}

func TestEquityPctSizer(t *testing.T) {
	s := NewEquityPct(0.1, 50, 2000)
	assert.InDelta(t, 1000, s.Size(10000, types.Long, 0, "", 0), 1e-9)
	// clamps to the floor
	assert.InDelta(t, 50, s.Size(100, types.Long, 0, "", 0), 1e-9)
	// clamps to the ceiling
	assert.InDelta(t, 2000, s.Size(1000000, types.Long, 0, "", 0), 1e-9)
}

func TestRiskPctSizer(t *testing.T) {
	s := NewRiskPct(0.01, 100, 0, 0.035)
	got := s.Size(10000, types.Long, 0, "", 0.02) // 1% of 10k / 2% = 5000
	assert.InDelta(t, 5000, got, 1e-9)
	gotDefault := s.Size(10000, types.Long, 0, "", 0) // falls back to 3.5%
	assert.InDelta(t, 100.0/0.035, gotDefault, 1e-6)
}

func TestKellySizerValidation(t *testing.T) {
	_, err := NewKelly(0, 1, 1, 0.5, 0, 0, 0)
	require.Error(t, err)
	_, err = NewKelly(0.55, 0, 1, 0.5, 0, 0, 0)
	require.Error(t, err)
	_, err = NewKelly(0.55, 1, 0, 0.5, 0, 0, 0)
	require.Error(t, err)
	_, err = NewKelly(0.55, 1, 1, 0, 0, 0, 0)
	require.Error(t, err)

	k, err := NewKelly(0.55, 1.5, 1.0, 0.5, 0, 0, 0)
	require.NoError(t, err)
	// payoff=1.5, f = 0.55 - 0.45/1.5 = 0.25
	assert.InDelta(t, 0.25, k.KellyFraction(), 1e-9)
}

func TestKellySizerEquityCap(t *testing.T) {
	k, err := NewKelly(0.9, 5, 1, 1.0, 0, 0, 0.1)
	require.NoError(t, err)
	// raw kelly fraction would exceed 10% of equity; hard cap applies.
	size := k.Size(10000, types.Long, 0, "", 0)
	assert.InDelta(t, 1000, size, 1e-9)
}
