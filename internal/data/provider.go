package data

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/model"
)

// Query selects bars for a set of symbols over [Start, End).
type Query struct {
	Symbols  []string
	Start    time.Time
	End      time.Time
	Interval string // e.g. "1d", "1h", "15m"
}

func (q Query) Validate() error {
	if len(q.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	for _, s := range q.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("empty symbol")
		}
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return fmt.Errorf("start and end are required")
	}
	if !q.Start.Before(q.End) {
		return fmt.Errorf("start must be before end")
	}
	if _, err := ParseInterval(q.Interval); err != nil {
		return err
	}
	return nil
}

// Provider loads OHLCV bars. Returned bars are sorted by timestamp.
type Provider interface {
	Name() string
	Bars(ctx context.Context, q Query) (map[string][]model.Bar, error)
}

// ProviderError is returned when a data source rejects or cannot serve a query.
type ProviderError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Provider == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func noData(provider, symbol string) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: http.StatusNotFound,
		Code:       "NO_DATA",
		Message:    fmt.Sprintf("no bars for %s in requested range", symbol),
	}
}

// Options configures NewProvider.
type Options struct {
	CSVDir   string
	StoreDir string
	Alpaca   AlpacaConfig
	// Cache wraps the provider with the process-wide bar cache when enabled.
	Cache bool
}

// Names lists the providers NewProvider understands.
func Names() []string { return []string{"alpaca", "csv", "parquet"} }

// NewProvider builds a provider by name.
func NewProvider(name string, opts Options, log logrus.FieldLogger) (Provider, error) {
	var p Provider
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv":
		if opts.CSVDir == "" {
			return nil, fmt.Errorf("csv provider needs a directory")
		}
		p = NewCSVProvider(opts.CSVDir)
	case "parquet":
		if opts.StoreDir == "" {
			return nil, fmt.Errorf("parquet provider needs a store directory")
		}
		p = NewParquetStore(opts.StoreDir)
	case "alpaca":
		ap, err := NewAlpacaProvider(opts.Alpaca, log)
		if err != nil {
			return nil, err
		}
		p = ap
	default:
		return nil, fmt.Errorf("unsupported data provider: %q", name)
	}
	if opts.Cache {
		p = NewCachedProvider(p, GetCache(), log)
	}
	return p, nil
}

func filterRange(bars []model.Bar, start, end time.Time) []model.Bar {
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if !start.IsZero() && b.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !b.Timestamp.Before(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
