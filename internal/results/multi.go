package results

import (
	"sort"
	"time"

	"replaybt/internal/portfolio"
)

// MultiAssetResults is the combined report across every symbol in a
// Multi-Asset Runner's book: the per-symbol results plus a single combined
// equity curve.
type MultiAssetResults struct {
	PerSymbol              map[string]BacktestResults
	CombinedEquity         []portfolio.EquityPoint
	CombinedNetPnL         float64
	InitialEquity          float64
	CombinedMaxDrawdownPct float64
}

// BuildMulti combines per-symbol results into a MultiAssetResults. The
// combined equity curve replays every symbol's equity-curve points in
// timestamp order, summing each symbol's latest-known equity at that
// instant (equity points are sparse — one per close — so a symbol's value
// between its own points is carried forward, never interpolated).
func BuildMulti(perSymbol map[string]BacktestResults) MultiAssetResults {
	out := MultiAssetResults{PerSymbol: perSymbol}

	type stamped struct {
		t      time.Time
		symbol string
		equity float64
	}
	var events []stamped
	last := make(map[string]float64, len(perSymbol))
	for symbol, r := range perSymbol {
		out.InitialEquity += r.InitialEquity
		last[symbol] = r.InitialEquity
		for _, pt := range r.EquityCurve {
			events = append(events, stamped{t: pt.Time, symbol: symbol, equity: pt.Equity})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].t.Before(events[j].t) })

	for _, ev := range events {
		last[ev.symbol] = ev.equity
		var total float64
		for _, v := range last {
			total += v
		}
		out.CombinedEquity = append(out.CombinedEquity, portfolio.EquityPoint{Time: ev.t, Equity: total})
	}

	var finalTotal float64
	for _, v := range last {
		finalTotal += v
	}
	out.CombinedNetPnL = finalTotal - out.InitialEquity
	out.CombinedMaxDrawdownPct = maxDrawdownPct(out.InitialEquity, out.CombinedEquity)
	return out
}

// maxDrawdownPct runs a peak-tracking pass over curve (seeded at
// initialEquity, since the book starts before its first equity point) and
// returns the largest peak-to-trough decline, as a percentage, per spec.md
// §4.7's "combined max drawdown is computed over this merged curve".
func maxDrawdownPct(initialEquity float64, curve []portfolio.EquityPoint) float64 {
	peak := initialEquity
	var maxDD float64
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - pt.Equity) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}
