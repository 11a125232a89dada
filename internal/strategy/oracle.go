package strategy

import "multiasset-backtest/internal/model"

// Oracle is a perfect-foresight strategy: it is long on bar t exactly when the
// next close is higher than this one.
//
// Notes:
//   - It reads bar t+1 and so breaks the no-lookahead contract on purpose.
//   - It is an upper-bound and ranking tool, never a tradable strategy.
//   - With several instruments the equal-weight allocation still applies, so
//     the portfolio result is a bound for that allocation rule only.
type Oracle struct {
	// MinMove ignores next-bar gains smaller than this fraction.
	MinMove float64
}

func (s *Oracle) Name() string { return "oracle" }

func (s *Oracle) Signals(series model.PriceSeries) ([]model.Signal, error) {
	closes := series.Close
	out := make([]model.Signal, len(closes))
	for t := 0; t+1 < len(closes); t++ {
		if closes[t] <= 0 {
			continue
		}
		if closes[t+1]/closes[t]-1 > s.MinMove {
			out[t] = model.SignalLong
		}
	}
	return out, nil
}
