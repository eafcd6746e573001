// Package results implements the Results Aggregator: folding a Portfolio's
// closed trades and equity curve into the summary statistics spec.md §8
// names (net PnL, win rate, profit factor, drawdown, exit-reason
// histogram), plus the monthly and multi-asset rollups.
//
// Grounded in
// _examples/Inkedup1114-bitunixbot/internal/backtest/engine.go's
// calculateMetrics and reporter.go's Results struct, re-keyed onto this
// module's Trade/EquityPoint types and spec.md's metric set rather than the
// teacher's tick-level PnL bookkeeping.
package results

import (
	"math"
	"time"

	"replaybt/internal/portfolio"
	"replaybt/internal/types"
)

// BacktestResults is the final report for a single-symbol run.
type BacktestResults struct {
	Symbol        string
	StartTime     time.Time
	EndTime       time.Time
	InitialEquity float64
	FinalEquity   float64

	NetPnLUSD  float64
	NetPnLPct  float64
	TotalFees  float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	GrossProfit  float64
	GrossLoss    float64
	ProfitFactor float64 // +Inf if GrossLoss is zero and GrossProfit > 0

	AvgWinUSD  float64
	AvgLossUSD float64
	AvgWinPct  float64
	AvgLossPct float64

	MaxDrawdownPct float64

	// ExitReasonCounts buckets every trade by its base exit reason (gap
	// variants folded into their non-gap base via ExitReason.Base()).
	ExitReasonCounts map[types.ExitReason]int

	Trades      []types.Trade
	EquityCurve []portfolio.EquityPoint
}

// Build aggregates pf's closed trades and equity curve into a
// BacktestResults. start/end bound the bar range the run covered (the
// first and last bar timestamps seen, independent of when the first trade
// happened to close).
func Build(pf *portfolio.Portfolio, start, end time.Time) BacktestResults {
	r := BacktestResults{
		Symbol:           pf.Symbol,
		StartTime:        start,
		EndTime:          end,
		InitialEquity:    pf.InitialEquity,
		FinalEquity:      pf.Equity,
		TotalFees:        pf.TotalFees,
		MaxDrawdownPct:   pf.MaxDrawdown * 100,
		ExitReasonCounts: make(map[types.ExitReason]int),
		Trades:           pf.Trades,
		EquityCurve:      pf.EquityCurve,
	}

	r.NetPnLUSD = pf.Equity - pf.InitialEquity
	if pf.InitialEquity != 0 {
		r.NetPnLPct = r.NetPnLUSD / pf.InitialEquity * 100
	}

	var sumWinUSD, sumLossUSD, sumWinPct, sumLossPct float64
	for _, t := range pf.Trades {
		r.TotalTrades++
		r.ExitReasonCounts[t.Reason.Base()]++
		switch {
		case t.PnLUSD > 0:
			r.WinningTrades++
			r.GrossProfit += t.PnLUSD
			sumWinUSD += t.PnLUSD
			sumWinPct += t.PnLPct
		case t.PnLUSD < 0:
			r.LosingTrades++
			r.GrossLoss += -t.PnLUSD
			sumLossUSD += t.PnLUSD
			sumLossPct += t.PnLPct
		}
	}

	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades)
	}
	if r.WinningTrades > 0 {
		r.AvgWinUSD = sumWinUSD / float64(r.WinningTrades)
		r.AvgWinPct = sumWinPct / float64(r.WinningTrades) * 100
	}
	if r.LosingTrades > 0 {
		r.AvgLossUSD = sumLossUSD / float64(r.LosingTrades)
		r.AvgLossPct = sumLossPct / float64(r.LosingTrades) * 100
	}

	switch {
	case r.GrossLoss == 0 && r.GrossProfit > 0:
		r.ProfitFactor = math.Inf(1)
	case r.GrossLoss == 0:
		r.ProfitFactor = 0
	default:
		r.ProfitFactor = r.GrossProfit / r.GrossLoss
	}

	return r
}
