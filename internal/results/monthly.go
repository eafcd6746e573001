package results

import (
	"fmt"
	"sort"
)

// MonthStats aggregates the trades whose exit fell within one calendar
// month, keyed "YYYY-MM" for stable, lexicographically-sortable ordering.
type MonthStats struct {
	Month         string
	Trades        int
	WinningTrades int
	LosingTrades  int
	NetPnLUSD     float64
	TotalFeesUSD  float64
	WinRate       float64
	MaxWinUSD     float64
	MaxLossUSD    float64
}

// MonthlyBreakdown groups r.Trades by the calendar month of ExitTime,
// mirroring the teacher's per-symbol monthly_breakdown grouping but keyed
// on trade exit rather than tick timestamp. Per spec.md §4.7: sum PnL/fees,
// count wins/losses, and report the single largest win and largest loss
// seen in the month.
func (r BacktestResults) MonthlyBreakdown() []MonthStats {
	byMonth := make(map[string]*MonthStats)
	for _, t := range r.Trades {
		key := fmt.Sprintf("%04d-%02d", t.ExitTime.Year(), t.ExitTime.Month())
		ms, ok := byMonth[key]
		if !ok {
			ms = &MonthStats{Month: key}
			byMonth[key] = ms
		}
		ms.Trades++
		ms.NetPnLUSD += t.PnLUSD
		ms.TotalFeesUSD += t.Fees
		switch {
		case t.PnLUSD > 0:
			ms.WinningTrades++
			if t.PnLUSD > ms.MaxWinUSD {
				ms.MaxWinUSD = t.PnLUSD
			}
		case t.PnLUSD < 0:
			ms.LosingTrades++
			if t.PnLUSD < ms.MaxLossUSD {
				ms.MaxLossUSD = t.PnLUSD
			}
		}
	}

	out := make([]MonthStats, 0, len(byMonth))
	for _, ms := range byMonth {
		if ms.Trades > 0 {
			ms.WinRate = float64(ms.WinningTrades) / float64(ms.Trades)
		}
		out = append(out, *ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
