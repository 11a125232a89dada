// Package metrics computes risk and performance figures for a portfolio value
// series measured against a benchmark value series.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	// PeriodsPerYear annualises per-bar figures regardless of bar size.
	PeriodsPerYear = 252

	// DefaultRiskFreeRate is subtracted from every per-bar return as-is.
	DefaultRiskFreeRate = 0.02
)

// Result holds the four headline metrics. Anything that cannot be computed
// is reported as 0.
type Result struct {
	Alpha   float64 `json:"alpha"`
	Beta    float64 `json:"beta"`
	Sharpe  float64 `json:"sharpe"`
	WinRate float64 `json:"win_rate"`
}

// Calculate derives alpha, beta (return correlation), Sharpe and win rate from
// two value series. Both are cut to their common prefix first. It never fails:
// short or degenerate input yields zeros.
func Calculate(portfolio, benchmark []float64, riskFreeRate float64) Result {
	if len(portfolio) < 2 || len(benchmark) < 2 {
		return Result{}
	}
	n := min(len(portfolio), len(benchmark))
	pr := SimpleReturns(portfolio[:n])
	br := SimpleReturns(benchmark[:n])
	if len(pr) < 2 || len(br) < 2 {
		return Result{}
	}

	res := Result{
		Sharpe:  sharpe(pr, riskFreeRate),
		WinRate: winRate(pr),
	}
	if intercept, ok := regressionIntercept(br, pr); ok {
		res.Alpha = intercept * PeriodsPerYear
	}
	if corr, ok := correlation(pr, br); ok {
		res.Beta = corr
	}

	res.Alpha = finiteOrZero(res.Alpha)
	res.Beta = finiteOrZero(res.Beta)
	res.Sharpe = finiteOrZero(res.Sharpe)
	res.WinRate = finiteOrZero(res.WinRate)
	return res
}

func sharpe(returns []float64, riskFreeRate float64) float64 {
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - riskFreeRate
	}
	if flat(excess) {
		return 0
	}
	mean, std := stat.PopMeanStdDev(excess, nil)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(PeriodsPerYear)
}

// regressionIntercept fits y = a + b*x by ordinary least squares and returns a.
// It reports false when x has no spread.
func regressionIntercept(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	if flat(x) {
		return 0, false
	}
	a, _ := stat.LinearRegression(x, y, nil, false)
	if !isFinite(a) {
		return 0, false
	}
	return a, true
}

// correlation is the Pearson coefficient. It reports false when either
// series has no spread.
func correlation(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}
	if flat(x) || flat(y) {
		return 0, false
	}
	c := stat.Correlation(x, y, nil)
	if !isFinite(c) {
		return 0, false
	}
	return c, true
}

func winRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// flat reports whether x has no spread at all. Values are compared
// exactly, so any nonzero spread counts no matter how small.
func flat(x []float64) bool {
	if len(x) == 0 {
		return true
	}
	for _, v := range x[1:] {
		if v != x[0] {
			return false
		}
	}
	return true
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteOrZero(x float64) float64 {
	if !isFinite(x) {
		return 0
	}
	return x
}
