package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"multiasset-backtest/internal/api/models"
	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/monitoring"
)

// ProviderFactory builds the market data provider a request asks for.
type ProviderFactory func(ds models.DataSourceConfig) (data.Provider, error)

// DefaultProviderFactory uses base for everything the request does not set.
// Alpaca credentials in the request take precedence over the environment.
func DefaultProviderFactory(base data.Options, log logrus.FieldLogger) ProviderFactory {
	return func(ds models.DataSourceConfig) (data.Provider, error) {
		opts := base
		if ds.APIKey != "" {
			opts.Alpaca.APIKey = ds.APIKey
		}
		if ds.APISecret != "" {
			opts.Alpaca.APISecret = ds.APISecret
		}
		if ds.Feed != "" {
			opts.Alpaca.Feed = ds.Feed
		}
		return data.NewProvider(ds.Provider, opts, log)
	}
}

func writeError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeDataError maps provider failures onto HTTP status codes.
func writeDataError(c *gin.Context, err error) {
	var perr *data.ProviderError
	if errors.As(err, &perr) {
		monitoring.RecordProviderError(perr.Provider, perr.Code)
		writeError(c, providerStatus(perr.StatusCode), perr.Code, perr.Message, map[string]interface{}{
			"provider":    perr.Provider,
			"status_code": perr.StatusCode,
		})
		return
	}
	writeError(c, http.StatusBadRequest, "DATA_FETCH_ERROR", err.Error(), nil)
}

func providerStatus(code int) int {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return http.StatusUnauthorized
	case code == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case code == http.StatusNotFound:
		return http.StatusNotFound
	case code >= 500:
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// engineErrorStatus classifies an engine failure.
func engineErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, backtest.ErrMisalignedSeries),
		errors.Is(err, backtest.ErrInvalidPrice),
		errors.Is(err, backtest.ErrUnsortedIndex):
		return http.StatusUnprocessableEntity, "INVALID_DATA"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "CANCELLED"
	}
	return http.StatusInternalServerError, "BACKTEST_ERROR"
}

// buildQuery turns a request data source into a provider query and the
// benchmark symbol. "none" disables the benchmark.
func buildQuery(ds models.DataSourceConfig) (data.Query, string, error) {
	start, _, err := config.ParseDate(ds.StartDate)
	if err != nil {
		return data.Query{}, "", fmt.Errorf("start_date: %w", err)
	}
	end, dateOnly, err := config.ParseDate(ds.EndDate)
	if err != nil {
		return data.Query{}, "", fmt.Errorf("end_date: %w", err)
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}
	interval := ds.Interval
	if interval == "" {
		interval = config.DefaultInterval
	}
	benchmark := strings.ToUpper(strings.TrimSpace(ds.Benchmark))
	switch benchmark {
	case "":
		benchmark = config.DefaultBenchmark
	case "NONE":
		benchmark = ""
	}
	q := data.Query{Symbols: ds.Symbols, Start: start, End: end, Interval: interval}
	if err := q.Validate(); err != nil {
		return data.Query{}, "", err
	}
	return q, benchmark, nil
}

func toSummary(res *backtest.Result, benchmark string) models.BacktestSummary {
	return models.BacktestSummary{
		Strategy:        res.Strategy,
		Symbols:         res.Symbols,
		Benchmark:       benchmark,
		TotalBars:       res.Summary.Bars,
		BacktestWindow:  models.TimeWindow{Start: res.Summary.Start, End: res.Summary.End},
		TradeCount:      res.Trades,
		FinalValue:      res.FinalValue,
		Alpha:           res.Metrics.Alpha,
		Beta:            res.Metrics.Beta,
		Sharpe:          res.Metrics.Sharpe,
		WinRate:         res.Metrics.WinRate,
		InitialCapital:  res.Summary.InitialCapital,
		TotalReturn:     res.Summary.TotalReturn,
		BenchmarkReturn: res.Summary.BenchmarkReturn,
		MaxDrawdown:     res.Summary.MaxDrawdown,
		Exposure:        res.Summary.Exposure,
	}
}

func convertPositions(in map[string]backtest.Holding) map[string]models.Position {
	out := make(map[string]models.Position, len(in))
	for sym, h := range in {
		out[sym] = models.Position{Shares: h.Shares, EntryPrice: h.EntryPrice}
	}
	return out
}

func convertLedger(ledger []backtest.LedgerRow) []models.LedgerRow {
	result := make([]models.LedgerRow, len(ledger))
	for i, row := range ledger {
		result[i] = models.LedgerRow{
			Index:          row.Index,
			Timestamp:      row.Timestamp,
			Buys:           row.Buys,
			Sells:          row.Sells,
			Allocation:     row.Allocation,
			Cash:           row.Cash,
			HoldingsValue:  row.HoldingsValue,
			PortfolioValue: row.PortfolioValue,
			Benchmark:      row.Benchmark,
			Trades:         row.Trades,
		}
	}
	return result
}

func convertFills(fills []backtest.TradeRecord) []models.Fill {
	result := make([]models.Fill, len(fills))
	for i, f := range fills {
		result[i] = models.Fill{
			Index:     f.Index,
			Timestamp: f.Timestamp,
			Symbol:    f.Symbol,
			Side:      string(f.Side),
			Price:     f.Price,
			Shares:    f.Shares,
			Amount:    f.Amount,
		}
	}
	return result
}
