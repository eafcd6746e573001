// Package storage provides a persistent per-run archive of fills, trades
// and equity-curve points, keyed by a uuid run ID. Uses BoltDB as the
// underlying storage engine, the same as the teacher's live-trading data
// store.
//
// Grounded in
// _examples/Inkedup1114-bitunixbot/internal/storage/storage.go's bucket
// layout and symbol/timestamp-prefixed key scheme (New/StoreTrade/
// getRecordsInRange's cursor range scan), re-keyed on run ID + symbol
// instead of the teacher's exchange-feed Trade/Depth types.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"replaybt/internal/portfolio"
	"replaybt/internal/types"
)

const (
	fillsBucket  = "fills"
	tradesBucket = "trades"
	equityBucket = "equity"
)

// Store provides persistent storage for one or more backtest runs' raw
// fills, trades and equity-curve points.
type Store struct {
	db *bbolt.DB
}

// New opens (creating if necessary) a BoltDB file under dataPath.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "replaybt-runs.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{fillsBucket, tradesBucket, equityBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("storage: create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// runKey formats the "runID_symbol_unixnano" key shared by every bucket,
// the same prefixed-key scheme the teacher's store uses for range scans.
// put appends a per-bucket sequence number to it, so records that share a
// symbol and timestamp do not overwrite each other.
func runKey(runID, symbol string, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s_%s_%d", runID, symbol, ts.UnixNano()))
}

// StoreFill persists one fill under runID.
func (s *Store) StoreFill(runID string, fill types.Fill) error {
	return s.put(fillsBucket, runKey(runID, fill.Symbol, fill.Timestamp), fill)
}

// StoreTrade persists one closed (or partially closed) trade under runID.
func (s *Store) StoreTrade(runID string, trade types.Trade) error {
	return s.put(tradesBucket, runKey(runID, trade.Symbol, trade.ExitTime), trade)
}

// StoreEquityPoint persists one equity-curve sample for symbol under runID.
func (s *Store) StoreEquityPoint(runID, symbol string, pt portfolio.EquityPoint) error {
	return s.put(equityBucket, runKey(runID, symbol, pt.Time), pt)
}

func (s *Store) put(bucket string, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: marshal: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		return b.Put(append(key, fmt.Sprintf("_%020d", seq)...), data)
	})
}

// GetFills retrieves every fill stored for runID/symbol, in the order
// BoltDB's cursor yields them: key order, which is by timestamp and then by
// the order in which fills sharing a timestamp were stored.
func (s *Store) GetFills(runID, symbol string) ([]types.Fill, error) {
	var out []types.Fill
	err := s.scan(fillsBucket, runID, symbol, func(data []byte) error {
		var f types.Fill
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

// GetTrades retrieves every trade stored for runID/symbol.
func (s *Store) GetTrades(runID, symbol string) ([]types.Trade, error) {
	var out []types.Trade
	err := s.scan(tradesBucket, runID, symbol, func(data []byte) error {
		var t types.Trade
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// GetEquityCurve retrieves every equity-curve point stored for
// runID/symbol.
func (s *Store) GetEquityCurve(runID, symbol string) ([]portfolio.EquityPoint, error) {
	var out []portfolio.EquityPoint
	err := s.scan(equityBucket, runID, symbol, func(data []byte) error {
		var pt portfolio.EquityPoint
		if err := json.Unmarshal(data, &pt); err != nil {
			return err
		}
		out = append(out, pt)
		return nil
	})
	return out, err
}

// scan walks every key prefixed "runID_symbol_" in bucket and hands its raw
// value to decode.
func (s *Store) scan(bucket, runID, symbol string, decode func([]byte) error) error {
	prefix := []byte(fmt.Sprintf("%s_%s_", runID, symbol))
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucket)).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			if err := decode(v); err != nil {
				continue // skip malformed records, matching the teacher's getRecordsInRange behavior
			}
		}
		return nil
	})
}

func hasPrefix(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}
