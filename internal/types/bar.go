// Package types holds the data model shared by every engine package: bars,
// orders, positions, fills and trades. Keeping them dependency-free avoids
// import cycles between execution, portfolio, processor and the runners.
package types

import (
	"fmt"
	"time"
)

// Bar is one completed OHLCV candle for a single symbol/timeframe.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Symbol    string
	Timeframe string
}

// Validate checks the internal consistency of a bar. A strict bar source
// should reject a stream on the first invalid bar rather than let it reach
// the processor.
func (b Bar) Validate() error {
	if b.High < b.Low {
		return fmt.Errorf("bar %s: high %.8f below low %.8f", b.Symbol, b.High, b.Low)
	}
	if b.Open < b.Low || b.Open > b.High {
		return fmt.Errorf("bar %s: open %.8f outside [%.8f, %.8f]", b.Symbol, b.Open, b.Low, b.High)
	}
	if b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %s: close %.8f outside [%.8f, %.8f]", b.Symbol, b.Close, b.Low, b.High)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s: negative volume %.8f", b.Symbol, b.Volume)
	}
	return nil
}
