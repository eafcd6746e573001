package indicators

import "replaybt/internal/types"

// VWAP is a rolling volume-weighted average price over the last Period
// bars, using each bar's typical price (H+L+C)/3. Grounded in
// _examples/Inkedup1114-bitunixbot/internal/features/vwap.go's ring-buffer
// sample design, adapted from a wall-clock time window to a bar-count
// window since a backtest indicator has no notion of real time passing
// between bars.
type VWAP struct {
	period                int
	prices, volumes       []float64
	idx                   int
	filled                bool
	sumPV, sumV           float64
}

func newVWAPFromConfig(_ string, cfg Config) Indicator {
	period := cfg.Period
	if period <= 0 {
		period = 20
	}
	return &VWAP{period: period, prices: make([]float64, period), volumes: make([]float64, period)}
}

func (v *VWAP) Update(bar types.Bar) {
	typical := (bar.High + bar.Low + bar.Close) / 3
	oldP, oldV := v.prices[v.idx], v.volumes[v.idx]
	v.sumPV -= oldP * oldV
	v.sumV -= oldV

	v.prices[v.idx] = typical
	v.volumes[v.idx] = bar.Volume
	v.sumPV += typical * bar.Volume
	v.sumV += bar.Volume

	v.idx = (v.idx + 1) % len(v.prices)
	if v.idx == 0 {
		v.filled = true
	}
}

func (v *VWAP) Value() float64 {
	if v.sumV == 0 {
		return 0
	}
	return v.sumPV / v.sumV
}

func (v *VWAP) Ready() bool { return v.filled }

func (v *VWAP) Reset() {
	for i := range v.prices {
		v.prices[i], v.volumes[i] = 0, 0
	}
	v.idx, v.filled, v.sumPV, v.sumV = 0, false, 0, 0
}
