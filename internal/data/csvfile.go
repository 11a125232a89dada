package data

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"multiasset-backtest/internal/model"
)

// CSVProvider reads one <SYMBOL>.csv per instrument from Dir. The expected
// columns are the usual spreadsheet export: Date (or Datetime/Timestamp),
// Open, High, Low, Close, Volume. Extra columns such as "Adj Close" are ignored.
type CSVProvider struct {
	Dir string
}

func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{Dir: dir}
}

func (p *CSVProvider) Name() string { return "csv" }

func (p *CSVProvider) Bars(ctx context.Context, q Query) (map[string][]model.Bar, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string][]model.Bar, len(q.Symbols))
	for _, sym := range q.Symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sym = strings.ToUpper(strings.TrimSpace(sym))
		bars, err := ReadBarsCSV(p.path(sym))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, noData(p.Name(), sym)
			}
			return nil, fmt.Errorf("read %s: %w", sym, err)
		}
		bars = filterRange(bars, q.Start, q.End)
		if len(bars) == 0 {
			return nil, noData(p.Name(), sym)
		}
		out[sym] = bars
	}
	return out, nil
}

func (p *CSVProvider) path(symbol string) string {
	return filepath.Join(p.Dir, symbol+".csv")
}

// ReadBarsCSV parses a bar file and returns the bars sorted by time.
func ReadBarsCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeBarsCSV(f)
}

func DecodeBarsCSV(in io.Reader) ([]model.Bar, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	timeCol := -1
	for _, name := range []string{"date", "datetime", "timestamp", "time"} {
		if i, ok := cols[name]; ok {
			timeCol = i
			break
		}
	}
	if timeCol < 0 {
		return nil, fmt.Errorf("no date column in header %v", header)
	}
	closeCol, ok := cols["close"]
	if !ok {
		return nil, fmt.Errorf("no close column in header %v", header)
	}

	var bars []model.Bar
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= closeCol || len(rec) <= timeCol {
			return nil, fmt.Errorf("line %d: expected at least %d fields, got %d", line, max(closeCol, timeCol)+1, len(rec))
		}
		ts, err := parseTimestamp(rec[timeCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closeVal, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		b := model.Bar{Timestamp: ts, Close: closeVal}
		b.Open = optionalFloat(rec, cols, "open", closeVal)
		b.High = optionalFloat(rec, cols, "high", closeVal)
		b.Low = optionalFloat(rec, cols, "low", closeVal)
		b.Volume = optionalFloat(rec, cols, "volume", 0)
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// WriteBarsCSV writes bars in the layout DecodeBarsCSV reads.
func WriteBarsCSV(path string, bars []model.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"Datetime", "Open", "High", "Low", "Close", "Volume"})
	for _, b := range bars {
		_ = w.Write([]string{
			b.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func optionalFloat(rec []string, cols map[string]int, name string, def float64) float64 {
	i, ok := cols[name]
	if !ok || i >= len(rec) {
		return def
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return def
	}
	return v
}
