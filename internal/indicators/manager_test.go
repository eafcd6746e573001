package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"replaybt/internal/types"
)

func mkBar(ts time.Time, o, h, l, c, v float64) types.Bar {
	return types.Bar{Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: v, Symbol: "X"}
}

func TestManagerUnknownTypeError(t *testing.T) {
	_, err := NewManager(map[string]Config{"bad": {Type: "nope"}}, nil)
	require.Error(t, err)
}

func TestManagerEMAReadiness(t *testing.T) {
	m, err := NewManager(map[string]Config{"e": {Type: "ema", Period: 3}}, nil)
	require.NoError(t, err)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		m.Update(mkBar(base.Add(time.Duration(i)*time.Minute), 10, 10, 10, 10, 1))
	}
	_, ready := m.Get("e")
	assert.False(t, ready)
	m.Update(mkBar(base.Add(2*time.Minute), 10, 10, 10, 10, 1))
	_, ready = m.Get("e")
	assert.True(t, ready)
}

func TestManagerResamplesToHigherTimeframe(t *testing.T) {
	m, err := NewManager(map[string]Config{"e30": {Type: "ema", Period: 1, Timeframe: "30m"}}, nil)
	require.NoError(t, err)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 29; i++ {
		m.Update(mkBar(base.Add(time.Duration(i)*time.Minute), 1, 1, 1, 1, 1))
		_, ready := m.Get("e30")
		assert.False(t, ready, "should not update before the 30m boundary closes")
	}
	// bar 30 (minute 30) starts a new half-hour boundary, completing the first.
	m.Update(mkBar(base.Add(30*time.Minute), 1, 1, 1, 1, 1))
	_, ready := m.Get("e30")
	assert.True(t, ready)
}

func TestManagerReset(t *testing.T) {
	m, err := NewManager(map[string]Config{"e": {Type: "ema", Period: 2}}, nil)
	require.NoError(t, err)
	base := time.Now()
	m.Update(mkBar(base, 1, 1, 1, 1, 1))
	m.Update(mkBar(base.Add(time.Minute), 1, 1, 1, 1, 1))
	_, ready := m.Get("e")
	require.True(t, ready)
	m.Reset()
	_, ready = m.Get("e")
	assert.False(t, ready)
}

func TestSMAAndVWAP(t *testing.T) {
	reg := NewRegistry()
	sma := newSMAFromConfig("s", Config{Type: "sma", Period: 2})
	sma.Update(mkBar(time.Now(), 0, 0, 0, 10, 1))
	sma.Update(mkBar(time.Now(), 0, 0, 0, 20, 1))
	assert.True(t, sma.Ready())
	assert.InDelta(t, 15, sma.Value(), 1e-9)

	vwap := reg.factories["vwap"]("v", Config{Type: "vwap", Period: 2})
	vwap.Update(mkBar(time.Now(), 10, 12, 8, 10, 100))
	vwap.Update(mkBar(time.Now(), 10, 12, 8, 10, 300))
	assert.True(t, vwap.Ready())
	assert.InDelta(t, 10, vwap.Value(), 1e-9)
}
