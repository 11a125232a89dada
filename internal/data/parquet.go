package data

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"multiasset-backtest/internal/model"
)

var _ Provider = (*ParquetStore)(nil)

// ParquetStore keeps fetched bars on disk so repeated backtests do not hit
// the network. Layout: <Dir>/<interval>/<SYMBOL>.parquet
type ParquetStore struct {
	Dir string
}

func NewParquetStore(dir string) *ParquetStore {
	return &ParquetStore{Dir: dir}
}

// BarRecord is the on-disk schema.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"volume"`
}

func (s *ParquetStore) Name() string { return "parquet" }

// WriteBars merges bars into the symbol's file. Rows with the same timestamp
// are replaced by the incoming ones.
func (s *ParquetStore) WriteBars(symbol, interval string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	iv, err := ParseInterval(interval)
	if err != nil {
		return err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, BarRecord{
			Symbol:    symbol,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	path := s.barPath(symbol, iv)
	existing, err := readParquetFile[BarRecord](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading existing bars for %s: %w", symbol, err)
	}
	merged := mergeBarRecords(existing, records)
	if err := writeParquetFile(path, merged); err != nil {
		return fmt.Errorf("writing bars for %s: %w", symbol, err)
	}
	return nil
}

// ReadBars returns the stored bars for symbol in [start, end). Zero bounds
// are open.
func (s *ParquetStore) ReadBars(symbol, interval string, start, end time.Time) ([]model.Bar, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	records, err := readParquetFile[BarRecord](s.barPath(symbol, iv))
	if err != nil {
		return nil, err
	}
	bars := make([]model.Bar, 0, len(records))
	for _, r := range records {
		bars = append(bars, model.Bar{
			Timestamp: time.UnixMilli(r.Timestamp).UTC(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	return filterRange(bars, start, end), nil
}

func (s *ParquetStore) Bars(ctx context.Context, q Query) (map[string][]model.Bar, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string][]model.Bar, len(q.Symbols))
	for _, sym := range q.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sym = strings.ToUpper(strings.TrimSpace(sym))
		bars, err := s.ReadBars(sym, q.Interval, q.Start, q.End)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, noData(s.Name(), sym)
			}
			return nil, err
		}
		if len(bars) == 0 {
			return nil, noData(s.Name(), sym)
		}
		out[sym] = bars
	}
	return out, nil
}

// ListSymbols returns the symbols stored for an interval.
func (s *ParquetStore) ListSymbols(interval string) ([]string, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.Dir, iv.String()))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var symbols []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(e.Name(), ".parquet"))
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *ParquetStore) barPath(symbol string, iv Interval) string {
	return filepath.Join(s.Dir, iv.String(), strings.ToUpper(symbol)+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates by timestamp, preferring incoming records.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}
	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
