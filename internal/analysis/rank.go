package analysis

import (
	"sort"

	"multiasset-backtest/internal/model"
)

type RankedPotential struct {
	Rank int `json:"rank"`
	TradingPotential
}

// RankByHindsight computes potentials per instrument and sorts descending by
// HindsightReturn. Ties are broken by symbol so the order is stable.
func RankByHindsight(series []model.PriceSeries) []RankedPotential {
	out := make([]RankedPotential, 0, len(series))
	for _, s := range series {
		out = append(out, RankedPotential{TradingPotential: ComputePotential(s)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HindsightReturn != out[j].HindsightReturn {
			return out[i].HindsightReturn > out[j].HindsightReturn
		}
		return out[i].Symbol < out[j].Symbol
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Top returns at most n entries.
func Top(ranked []RankedPotential, n int) []RankedPotential {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
