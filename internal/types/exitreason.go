package types

// ExitReason tags why a position was closed (fully or partially). Gap
// variants distinguish an open-gap exit from an intrabar exit at the same
// level; the results aggregator folds the gap variant into its base reason
// when building the exit histogram.
type ExitReason string

const (
	ExitStopLoss        ExitReason = "STOP_LOSS"
	ExitStopLossGap     ExitReason = "STOP_LOSS_GAP"
	ExitTakeProfit      ExitReason = "TAKE_PROFIT"
	ExitTakeProfitGap   ExitReason = "TAKE_PROFIT_GAP"
	ExitBreakeven       ExitReason = "BREAKEVEN"
	ExitBreakevenGap    ExitReason = "BREAKEVEN_GAP"
	ExitTrailingStop    ExitReason = "TRAILING_STOP"
	ExitTrailingStopGap ExitReason = "TRAILING_STOP_GAP"
	ExitPartialTP       ExitReason = "PARTIAL_TP"
	ExitSignal          ExitReason = "SIGNAL"
)

// Base strips a gap suffix, e.g. STOP_LOSS_GAP -> STOP_LOSS. Used by the
// results aggregator's exit histogram so a gapped stop and an intrabar stop
// count under the same bucket.
func (r ExitReason) Base() ExitReason {
	switch r {
	case ExitStopLossGap:
		return ExitStopLoss
	case ExitTakeProfitGap:
		return ExitTakeProfit
	case ExitBreakevenGap:
		return ExitBreakeven
	case ExitTrailingStopGap:
		return ExitTrailingStop
	default:
		return r
	}
}
