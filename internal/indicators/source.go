package indicators

import "replaybt/internal/types"

// sourceValue resolves a Config.Source field name ("close" by default) to
// the corresponding OHLC field of bar.
func sourceValue(bar types.Bar, source string) float64 {
	switch source {
	case "open":
		return bar.Open
	case "high":
		return bar.High
	case "low":
		return bar.Low
	default:
		return bar.Close
	}
}
