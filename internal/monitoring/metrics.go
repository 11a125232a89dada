package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_runs_total",
			Help: "Total number of backtest runs by outcome",
		},
		[]string{"strategy", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_run_duration_seconds",
			Help:    "Wall time of a backtest run, data loading excluded",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	runTrades = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_trades",
			Help:    "Distribution of trade counts per run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"strategy"},
	)

	providerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_provider_errors_total",
			Help: "Total number of market data provider errors",
		},
		[]string{"provider", "code"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_http_requests_total",
			Help: "HTTP requests served by the API",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backtest_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(runsTotal)
	prometheus.MustRegister(runDuration)
	prometheus.MustRegister(runTrades)
	prometheus.MustRegister(providerErrors)
	prometheus.MustRegister(httpRequests)
	prometheus.MustRegister(httpDuration)
}

// Handler serves the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a finished run. err != nil counts as a failure.
func RecordRun(strategy string, elapsed time.Duration, trades int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	runsTotal.WithLabelValues(strategy, status).Inc()
	runDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	if err == nil {
		runTrades.WithLabelValues(strategy).Observe(float64(trades))
	}
}

func RecordProviderError(provider, code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	providerErrors.WithLabelValues(provider, code).Inc()
}

func RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
