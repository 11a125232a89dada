package data

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/model"
)

type AlpacaConfig struct {
	APIKey    string
	APISecret string
	// BaseURL overrides the market data endpoint; empty uses the SDK default.
	BaseURL string
	// Feed is "iex" (free) or "sip".
	Feed string
}

// AlpacaProvider fetches historical bars from the Alpaca market data API.
type AlpacaProvider struct {
	client *marketdata.Client
	feed   marketdata.Feed
	log    logrus.FieldLogger
}

func NewAlpacaProvider(cfg AlpacaConfig, log logrus.FieldLogger) (*AlpacaProvider, error) {
	if err := validateCredentials(cfg); err != nil {
		return nil, err
	}
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	feed := marketdata.Feed(cfg.Feed)
	if feed == "" {
		feed = marketdata.IEX
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		feed:   feed,
		log:    log.WithField("provider", "alpaca"),
	}, nil
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

// Bars fetches every symbol in a single multi-symbol request.
func (p *AlpacaProvider) Bars(ctx context.Context, q Query) (map[string][]model.Bar, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iv, err := ParseInterval(q.Interval)
	if err != nil {
		return nil, err
	}
	tf, err := alpacaTimeFrame(iv)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, len(q.Symbols))
	for i, s := range q.Symbols {
		symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	log := p.log.WithFields(logrus.Fields{
		"symbols":  strings.Join(symbols, ","),
		"start":    q.Start.Format("2006-01-02"),
		"end":      q.End.Format("2006-01-02"),
		"interval": iv.String(),
	})
	log.Info("requesting bars")

	started := time.Now()
	multi, err := p.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: tf,
		Start:     q.Start,
		End:       q.End,
		Feed:      p.feed,
	})
	if err != nil {
		log.WithError(err).WithField("duration", time.Since(started)).Warn("request failed")
		return nil, &ProviderError{
			Provider:   p.Name(),
			StatusCode: http.StatusBadGateway,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("GetMultiBars: %v", err),
			Err:        err,
		}
	}

	out := make(map[string][]model.Bar, len(symbols))
	for _, sym := range symbols {
		raw := multi[sym]
		if len(raw) == 0 {
			log.WithField("symbol", sym).Warn("no bars returned")
			return nil, noData(p.Name(), sym)
		}
		bars := make([]model.Bar, 0, len(raw))
		for _, ab := range raw {
			bars = append(bars, model.Bar{
				Timestamp: ab.Timestamp.UTC(),
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    float64(ab.Volume),
			})
		}
		sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
		out[sym] = bars
	}

	log.WithField("duration", time.Since(started)).Info("bars received")
	return out, nil
}

func alpacaTimeFrame(iv Interval) (marketdata.TimeFrame, error) {
	switch iv.Unit {
	case UnitMinute:
		return marketdata.NewTimeFrame(iv.N, marketdata.Min), nil
	case UnitHour:
		return marketdata.NewTimeFrame(iv.N, marketdata.Hour), nil
	case UnitDay:
		return marketdata.OneDay, nil
	case UnitWeek:
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	case UnitMonth:
		return marketdata.NewTimeFrame(iv.N, marketdata.Month), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported interval %s", iv)
}

// validateCredentials rejects obviously missing keys before any request.
func validateCredentials(cfg AlpacaConfig) error {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return &ProviderError{
			Provider:   "alpaca",
			StatusCode: http.StatusUnauthorized,
			Code:       "MISSING_API_KEY",
			Message:    "ALPACA_API_KEY and ALPACA_API_SECRET are required",
		}
	}
	return nil
}
