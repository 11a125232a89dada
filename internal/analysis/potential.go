package analysis

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"multiasset-backtest/internal/metrics"
	"multiasset-backtest/internal/model"
)

// TradingPotential is a per-instrument summary used for ranking a universe
// before choosing what to backtest. It does not depend on any strategy; the
// hindsight figure is the best a long-only, fully-invested trader could have
// done with perfect knowledge of the next close.
type TradingPotential struct {
	Symbol string `json:"symbol"`

	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Count int `json:"count"`

	MinClose  float64 `json:"min_close"`
	MaxClose  float64 `json:"max_close"`
	MeanClose float64 `json:"mean_close"`

	// Percentiles of simple period returns.
	P05Return    float64 `json:"p05_return"`
	P95Return    float64 `json:"p95_return"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`

	// AnnualizedVolatility is the sample std of period returns scaled by sqrt(252).
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	MaxDrawdown          float64 `json:"max_drawdown"`

	BuyAndHoldReturn float64 `json:"buy_and_hold_return"`
	HindsightReturn  float64 `json:"hindsight_return"`
	// HindsightTrades counts the buys and sells the hindsight path needs.
	HindsightTrades int `json:"hindsight_trades"`
}

func ComputePotential(s model.PriceSeries) TradingPotential {
	p := TradingPotential{Symbol: s.Symbol}
	if len(s.Close) == 0 {
		return p
	}
	p.Count = len(s.Close)
	if len(s.Index) == len(s.Close) {
		p.Start = s.Index[0]
		p.End = s.Index[len(s.Index)-1]
	}

	minv := math.Inf(1)
	maxv := math.Inf(-1)
	for _, v := range s.Close {
		minv = math.Min(minv, v)
		maxv = math.Max(maxv, v)
	}
	p.MinClose = minv
	p.MaxClose = maxv
	p.MeanClose = stat.Mean(s.Close, nil)
	p.MaxDrawdown = metrics.MaxDrawdown(s.Close)
	p.BuyAndHoldReturn = metrics.TotalReturn(s.Close)

	returns := metrics.SimpleReturns(s.Close)
	if len(returns) > 0 {
		sorted := append([]float64(nil), returns...)
		sort.Float64s(sorted)
		p.P05Return = percentileSorted(sorted, 0.05)
		p.P95Return = percentileSorted(sorted, 0.95)
		p.SpreadP95P05 = p.P95Return - p.P05Return
	}
	if len(returns) > 1 {
		vol := stat.StdDev(returns, nil) * math.Sqrt(metrics.PeriodsPerYear)
		if !math.IsNaN(vol) && !math.IsInf(vol, 0) {
			p.AnnualizedVolatility = vol
		}
	}

	p.HindsightReturn, p.HindsightTrades = hindsightLongOnly(s.Close)
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

type hindsightState struct {
	wealth float64
	trades int
}

// hindsightLongOnly runs a two-state DP (flat, long) over the closes and
// returns the best achievable total return with the trade count of that path.
// Trades happen at the close, like the backtest engine.
func hindsightLongOnly(closes []float64) (float64, int) {
	if len(closes) < 2 {
		return 0, 0
	}
	flat := hindsightState{wealth: 1}
	long := hindsightState{wealth: math.Inf(-1)}

	for t := 0; t < len(closes)-1; t++ {
		// decide at close t
		nextFlat := flat
		if long.wealth > nextFlat.wealth {
			nextFlat = hindsightState{wealth: long.wealth, trades: long.trades + 1}
		}
		nextLong := long
		if flat.wealth > nextLong.wealth {
			nextLong = hindsightState{wealth: flat.wealth, trades: flat.trades + 1}
		}
		// carry to close t+1
		if closes[t] > 0 {
			nextLong.wealth *= closes[t+1] / closes[t]
		}
		flat, long = nextFlat, nextLong
	}

	best := flat
	if long.wealth > best.wealth {
		// still holding at the end; open positions are not liquidated
		best = long
	}
	return best.wealth - 1, best.trades
}
