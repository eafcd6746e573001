package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaybt/internal/portfolio"
	"replaybt/internal/types"
)

func TestNewCreatesDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dir, "replaybt-runs.db"))
	assert.NoError(t, err, "database file should have been created")
}

func TestStoreAndRetrieveFillsTradesEquity(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	runID := "run-1"
	base := time.Now()

	require.NoError(t, store.StoreFill(runID, types.Fill{
		Timestamp: base, Symbol: "BTCUSDT", Side: types.Long, Price: 100, SizeUSD: 1000,
	}))
	require.NoError(t, store.StoreTrade(runID, types.Trade{
		Symbol: "BTCUSDT", ExitTime: base.Add(time.Minute), PnLUSD: 50, Reason: types.ExitTakeProfit,
	}))
	require.NoError(t, store.StoreEquityPoint(runID, "BTCUSDT", portfolio.EquityPoint{
		Time: base.Add(time.Minute), Equity: 10050,
	}))

	fills, err := store.GetFills(runID, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.InDelta(t, 100, fills[0].Price, 1e-9)

	trades, err := store.GetTrades(runID, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.InDelta(t, 50, trades[0].PnLUSD, 1e-9)

	curve, err := store.GetEquityCurve(runID, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, curve, 1)
	assert.InDelta(t, 10050, curve[0].Equity, 1e-9)
}

func TestStoreScopesRecordsByRunAndSymbol(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)
	defer store.Close()

	base := time.Now()
	require.NoError(t, store.StoreFill("run-1", types.Fill{Timestamp: base, Symbol: "BTCUSDT", Price: 1}))
	require.NoError(t, store.StoreFill("run-1", types.Fill{Timestamp: base, Symbol: "ETHUSDT", Price: 2}))
	require.NoError(t, store.StoreFill("run-2", types.Fill{Timestamp: base, Symbol: "BTCUSDT", Price: 3}))

	fills, err := store.GetFills("run-1", "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.InDelta(t, 1, fills[0].Price, 1e-9, "must not see ETHUSDT's fill or run-2's fill")
}
