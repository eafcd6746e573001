package reporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replaybt/internal/results"
	"replaybt/internal/types"
)

func sampleResults() results.BacktestResults {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		{
			Symbol: "BTCUSDT", Side: types.Long,
			EntryTime: base, ExitTime: base.Add(time.Hour),
			EntryPrice: 100, ExitPrice: 103, SizeUSD: 1000,
			PnLUSD: 30, PnLPct: 3, Fees: 1, Reason: types.ExitTakeProfit,
		},
		{
			Symbol: "BTCUSDT", Side: types.Short,
			EntryTime: base.AddDate(0, 1, 0), ExitTime: base.AddDate(0, 1, 0).Add(time.Hour),
			EntryPrice: 100, ExitPrice: 102, SizeUSD: 1000,
			PnLUSD: -20, PnLPct: -2, Fees: 1, Reason: types.ExitStopLoss,
		},
	}
	return results.BacktestResults{
		Symbol:           "BTCUSDT",
		StartTime:        base,
		EndTime:          base.AddDate(0, 1, 1),
		InitialEquity:    10000,
		FinalEquity:      10010,
		NetPnLUSD:        10,
		NetPnLPct:        0.1,
		TotalFees:        2,
		TotalTrades:      2,
		WinningTrades:    1,
		LosingTrades:     1,
		WinRate:          0.5,
		ProfitFactor:     1.5,
		MaxDrawdownPct:   2.0,
		ExitReasonCounts: map[types.ExitReason]int{types.ExitTakeProfit: 1, types.ExitStopLoss: 1},
		Trades:           trades,
	}
}

func TestGenerateReportWritesAllFourFiles(t *testing.T) {
	dir := t.TempDir()
	r := New(sampleResults(), dir, zerolog.Nop())
	require.NoError(t, r.GenerateReport())

	for _, name := range []string{"summary.txt", "trade_log.csv", "backtest_results.json", "metrics_report.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, "%s should have been created", name)
	}
}

func TestTradeLogContainsOneRowPerTrade(t *testing.T) {
	dir := t.TempDir()
	r := New(sampleResults(), dir, zerolog.Nop())
	require.NoError(t, r.generateTradeLog())

	data, err := os.ReadFile(filepath.Join(dir, "trade_log.csv"))
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 3, lines, "header + 2 trade rows")
}

func TestJSONReportRoundTripsSummary(t *testing.T) {
	dir := t.TempDir()
	r := New(sampleResults(), dir, zerolog.Nop())
	require.NoError(t, r.generateJSONReport())

	data, err := os.ReadFile(filepath.Join(dir, "backtest_results.json"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	summary, ok := decoded["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BTCUSDT", summary["Symbol"])
}

func TestMetricsReportGroupsByMonth(t *testing.T) {
	dir := t.TempDir()
	r := New(sampleResults(), dir, zerolog.Nop())
	require.NoError(t, r.generateMetricsReport())

	data, err := os.ReadFile(filepath.Join(dir, "metrics_report.csv"))
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, 3, lines, "header + 2 distinct months")
}
