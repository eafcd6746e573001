package indicators

import (
	"fmt"

	"replaybt/internal/types"
)

// tfMinutes mirrors original replaybt's _BarAccumulator.TF_MINUTES table.
var tfMinutes = map[string]int{
	"1m": 1, "3m": 3, "5m": 5, "15m": 15,
	"30m": 30, "1h": 60, "2h": 120, "4h": 240, "1d": 1440,
}

// accumulator aggregates a run of 1-minute bars into a single higher
// timeframe bar, emitting the completed bar the instant a new period
// boundary is crossed.
type accumulator struct {
	timeframe string
	minutes   int

	open, high, low, close, volume float64
	haveOpen                       bool
	startMinuteOfDay               int
	startDayOrdinal                int
	symbol                         string
}

func newAccumulator(timeframe string) (*accumulator, error) {
	minutes, ok := tfMinutes[timeframe]
	if !ok {
		return nil, fmt.Errorf("indicators: unsupported timeframe %q", timeframe)
	}
	a := &accumulator{timeframe: timeframe, minutes: minutes}
	a.reset()
	return a, nil
}

func (a *accumulator) boundary(minuteOfDay, dayOrdinal int) (int, int) {
	if a.minutes >= 1440 {
		return dayOrdinal, 0
	}
	return dayOrdinal, minuteOfDay / a.minutes
}

// add folds bar into the current period. It returns the just-completed bar
// and true the instant bar belongs to a new period; otherwise it returns
// the zero Bar and false.
func (a *accumulator) add(bar types.Bar) (types.Bar, bool) {
	minuteOfDay := bar.Timestamp.Hour()*60 + bar.Timestamp.Minute()
	dayOrdinal := bar.Timestamp.Year()*400 + bar.Timestamp.YearDay()
	day, slot := a.boundary(minuteOfDay, dayOrdinal)

	var completed types.Bar
	haveCompleted := false

	if a.haveOpen {
		prevDay, prevSlot := a.boundary(a.startMinuteOfDay, a.startDayOrdinal)
		if day != prevDay || slot != prevSlot {
			completed = types.Bar{
				Open: a.open, High: a.high, Low: a.low, Close: a.close,
				Volume: a.volume, Symbol: a.symbol, Timeframe: a.timeframe,
			}
			haveCompleted = true
			a.haveOpen = false
		}
	}

	if !a.haveOpen {
		a.open = bar.Open
		a.high = bar.High
		a.low = bar.Low
		a.volume = 0
		a.startMinuteOfDay = minuteOfDay
		a.startDayOrdinal = dayOrdinal
		a.symbol = bar.Symbol
		a.haveOpen = true
	}
	if bar.High > a.high {
		a.high = bar.High
	}
	if bar.Low < a.low {
		a.low = bar.Low
	}
	a.close = bar.Close
	a.volume += bar.Volume

	return completed, haveCompleted
}

func (a *accumulator) reset() {
	a.haveOpen = false
	a.open, a.high, a.low, a.close, a.volume = 0, 0, 0, 0, 0
}
