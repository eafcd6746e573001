package databar

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"replaybt/internal/types"
)

// CSVSource loads bars from a CSV file with a header row, resolving the
// column order dynamically the way
// _examples/Inkedup1114-bitunixbot/internal/backtest/data_loader.go's
// LoadFromCSV does, rather than assuming a fixed column order. Expected
// headers: timestamp, open, high, low, close, volume (case-insensitive;
// "time"/"date" also accepted for timestamp).
type CSVSource struct {
	symbol string
	bars   []types.Bar
	index  int
}

// LoadCSV reads path and returns a CSVSource sorted by timestamp. Strict,
// unlike a production ingestion pipeline: any malformed row or
// internally-inconsistent bar (Bar.Validate) aborts the load rather than
// silently skipping it, per spec.md §7's bar-integrity guidance.
func LoadCSV(path, symbol string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("databar: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("databar: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(h)] = i
	}

	tsCol, ok := firstPresent(col, "timestamp", "time", "date")
	if !ok {
		return nil, fmt.Errorf("databar: %s: missing a timestamp column", path)
	}
	required := map[string]int{}
	for _, name := range []string{"open", "high", "low", "close", "volume"} {
		idx, ok := col[name]
		if !ok {
			return nil, fmt.Errorf("databar: %s: missing column %q", path, name)
		}
		required[name] = idx
	}

	var bars []types.Bar
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("databar: %s: %w", path, err)
		}
		ts, err := parseTimestamp(rec[tsCol])
		if err != nil {
			return nil, fmt.Errorf("databar: %s: bad timestamp %q: %w", path, rec[tsCol], err)
		}
		bar := types.Bar{Timestamp: ts, Symbol: symbol, Timeframe: "1m"}
		bar.Open, err = strconv.ParseFloat(rec[required["open"]], 64)
		if err != nil {
			return nil, fmt.Errorf("databar: %s: bad open: %w", path, err)
		}
		bar.High, err = strconv.ParseFloat(rec[required["high"]], 64)
		if err != nil {
			return nil, fmt.Errorf("databar: %s: bad high: %w", path, err)
		}
		bar.Low, err = strconv.ParseFloat(rec[required["low"]], 64)
		if err != nil {
			return nil, fmt.Errorf("databar: %s: bad low: %w", path, err)
		}
		bar.Close, err = strconv.ParseFloat(rec[required["close"]], 64)
		if err != nil {
			return nil, fmt.Errorf("databar: %s: bad close: %w", path, err)
		}
		bar.Volume, err = strconv.ParseFloat(rec[required["volume"]], 64)
		if err != nil {
			return nil, fmt.Errorf("databar: %s: bad volume: %w", path, err)
		}
		if err := bar.Validate(); err != nil {
			return nil, fmt.Errorf("databar: %s: %w", path, err)
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return &CSVSource{symbol: symbol, bars: bars}, nil
}

func firstPresent(col map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if idx, ok := col[n]; ok {
			return idx, true
		}
	}
	return 0, false
}

func parseTimestamp(s string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}
	var lastErr error
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, lastErr
}

func (c *CSVSource) Symbol() string { return c.symbol }
func (c *CSVSource) Reset()         { c.index = 0 }
func (c *CSVSource) HasNext() bool  { return c.index < len(c.bars) }
func (c *CSVSource) Next() types.Bar {
	bar := c.bars[c.index]
	c.index++
	return bar
}

// Len reports the total bar count, used by runners to report progress.
func (c *CSVSource) Len() int { return len(c.bars) }

// Bars returns a copy of the full, timestamp-sorted bar slice, for callers
// that need to hand the same data to an AsyncSource (e.g. PacedAsyncSource)
// instead of driving this synchronous Source directly.
func (c *CSVSource) Bars() []types.Bar {
	out := make([]types.Bar, len(c.bars))
	copy(out, c.bars)
	return out
}
