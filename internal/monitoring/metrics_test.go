package monitoring

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRun(t *testing.T) {
	okBefore := testutil.ToFloat64(runsTotal.WithLabelValues("metrics_test", "ok"))
	errBefore := testutil.ToFloat64(runsTotal.WithLabelValues("metrics_test", "error"))

	RecordRun("metrics_test", 20*time.Millisecond, 4, nil)
	RecordRun("metrics_test", time.Millisecond, 0, errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(runsTotal.WithLabelValues("metrics_test", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(runsTotal.WithLabelValues("metrics_test", "error")))
}

func TestRecordProviderError(t *testing.T) {
	before := testutil.ToFloat64(providerErrors.WithLabelValues("csv", "UNKNOWN"))
	RecordProviderError("csv", "")
	assert.Equal(t, before+1, testutil.ToFloat64(providerErrors.WithLabelValues("csv", "UNKNOWN")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "backtest_http_requests_total")
	assert.Contains(t, string(body), `route="/health"`)
}
