package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateShortInputIsZero(t *testing.T) {
	cases := []struct {
		name      string
		portfolio []float64
		benchmark []float64
	}{
		{"empty", nil, nil},
		{"single portfolio value", []float64{100}, []float64{100, 101, 102}},
		{"single benchmark value", []float64{100, 101, 102}, []float64{100}},
		// two values give one return, which is still too few.
		{"two values", []float64{100, 110}, []float64{100, 105}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, Result{}, Calculate(tc.portfolio, tc.benchmark, DefaultRiskFreeRate))
		})
	}
}

func TestCalculateConstantPortfolioHasZeroSharpe(t *testing.T) {
	portfolio := []float64{1000, 1000, 1000, 1000, 1000}
	benchmark := []float64{100, 101, 99, 103, 104}

	res := Calculate(portfolio, benchmark, DefaultRiskFreeRate)
	assert.Equal(t, 0.0, res.Sharpe)
	assert.Equal(t, 0.0, res.WinRate)
	assert.Equal(t, 0.0, res.Beta)
	assert.InDelta(t, 0.0, res.Alpha, 1e-12)
}

func TestCalculateSharpe(t *testing.T) {
	// returns are +10%, -10%, +10%
	portfolio := []float64{100, 110, 99, 108.9}
	benchmark := []float64{100, 101, 102, 103}

	res := Calculate(portfolio, benchmark, DefaultRiskFreeRate)
	assert.InDelta(t, math.Sqrt(252.0/50.0), res.Sharpe, 1e-9)
	assert.InDelta(t, 2.0/3.0, res.WinRate, 1e-12)
}

func TestSharpeTinySpreadIsNotZero(t *testing.T) {
	returns := []float64{0.01, 0.01 + 1e-14, 0.01, 0.01 + 1e-14}

	got := sharpe(returns, 0)
	assert.Greater(t, got, 0.0)
	assert.False(t, math.IsInf(got, 0))

	assert.Equal(t, 0.0, sharpe([]float64{0.01, 0.01, 0.01, 0.01}, 0))
	assert.Equal(t, 0.0, sharpe([]float64{0.01, 0.01, 0.01}, 0.03))
}

func TestCalculateIdenticalSeries(t *testing.T) {
	values := []float64{100, 101, 99.5, 102, 103.2, 101.7}

	res := Calculate(values, values, DefaultRiskFreeRate)
	assert.InDelta(t, 1.0, res.Beta, 1e-9)
	assert.InDelta(t, 0.0, res.Alpha, 1e-9)
}

func TestCalculateTruncatesLongerBenchmark(t *testing.T) {
	portfolio := []float64{100, 103, 101, 106}
	benchmark := []float64{50, 51, 50.5, 52, 80, 10}

	got := Calculate(portfolio, benchmark, DefaultRiskFreeRate)
	want := Calculate(portfolio, benchmark[:len(portfolio)], DefaultRiskFreeRate)
	assert.Equal(t, want, got)

	// and the other way around
	got = Calculate(append(portfolio, 1, 2, 3), benchmark[:4], DefaultRiskFreeRate)
	assert.Equal(t, want, got)
}

func TestCalculateWinRateBounds(t *testing.T) {
	series := [][]float64{
		{100, 101, 102, 103},
		{100, 99, 98, 97},
		{100, 100, 100},
		{100, 120, 90, 95, 200, 1},
	}
	benchmark := []float64{10, 11, 12, 11, 13, 14}
	for _, s := range series {
		res := Calculate(s, benchmark, DefaultRiskFreeRate)
		assert.GreaterOrEqual(t, res.WinRate, 0.0)
		assert.LessOrEqual(t, res.WinRate, 1.0)
	}
	assert.Equal(t, 1.0, Calculate(series[0], benchmark, DefaultRiskFreeRate).WinRate)
	assert.Equal(t, 0.0, Calculate(series[1], benchmark, DefaultRiskFreeRate).WinRate)
}

func TestCalculateClampsNonFinite(t *testing.T) {
	// a zero value makes the first return infinite.
	res := Calculate([]float64{0, 1, 2}, []float64{1, 2, 3}, DefaultRiskFreeRate)
	for _, v := range []float64{res.Alpha, res.Beta, res.Sharpe, res.WinRate} {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}
}

func TestRegressionIntercept(t *testing.T) {
	x := []float64{0.01, -0.02, 0.03, 0.0, 0.015}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = 0.001 + 2*v
	}

	a, ok := regressionIntercept(x, y)
	require.True(t, ok)
	assert.InDelta(t, 0.001, a, 1e-12)

	_, ok = regressionIntercept([]float64{0.01, 0.01, 0.01}, []float64{1, 2, 3})
	assert.False(t, ok)

	_, ok = regressionIntercept([]float64{0.01}, []float64{1})
	assert.False(t, ok)
}

func TestCorrelation(t *testing.T) {
	x := []float64{0.01, -0.02, 0.03, 0.0}
	neg := []float64{-0.01, 0.02, -0.03, 0.0}

	c, ok := correlation(x, x)
	require.True(t, ok)
	assert.InDelta(t, 1.0, c, 1e-12)

	c, ok = correlation(x, neg)
	require.True(t, ok)
	assert.InDelta(t, -1.0, c, 1e-12)

	_, ok = correlation(x, []float64{0, 0, 0, 0})
	assert.False(t, ok)
}
