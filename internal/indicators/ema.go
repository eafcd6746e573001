package indicators

import "replaybt/internal/types"

// EMA is an exponential moving average over Config.Source (close by
// default), grounded in
// _examples/original_source/src/replaybt/indicators/ema.py's incremental
// update (the batch `Indicator.batch_ema` pandas helper is explicitly out
// of scope: this is the streaming, bar-by-bar version only).
type EMA struct {
	period int
	source string
	alpha  float64
	value  float64
	count  int
}

func newEMAFromConfig(_ string, cfg Config) Indicator {
	period := cfg.Period
	if period <= 0 {
		period = 14
	}
	return &EMA{period: period, source: cfg.Source, alpha: 2.0 / float64(period+1)}
}

func (e *EMA) Update(bar types.Bar) {
	v := sourceValue(bar, e.source)
	if e.count == 0 {
		e.value = v
	} else {
		e.value = e.alpha*v + (1-e.alpha)*e.value
	}
	e.count++
}

func (e *EMA) Value() float64 { return e.value }
func (e *EMA) Ready() bool    { return e.count >= e.period }
func (e *EMA) Reset()         { e.value, e.count = 0, 0 }
