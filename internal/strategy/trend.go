package strategy

import (
	"fmt"

	"multiasset-backtest/internal/model"
)

// SMACrossParams: long while the Short-bar simple moving average is above the
// Long-bar one. Flat until Long bars are available.
type SMACrossParams struct {
	Short int
	Long  int
}

type SMACross struct {
	Params SMACrossParams
}

func NewSMACross(p SMACrossParams) (*SMACross, error) {
	if p.Short < 1 || p.Long < 1 {
		return nil, fmt.Errorf("sma_cross: periods must be >= 1")
	}
	if p.Short >= p.Long {
		return nil, fmt.Errorf("sma_cross: short (%d) must be < long (%d)", p.Short, p.Long)
	}
	return &SMACross{Params: p}, nil
}

func (s *SMACross) Name() string { return "sma_cross" }

func (s *SMACross) Signals(series model.PriceSeries) ([]model.Signal, error) {
	closes := series.Close
	out := make([]model.Signal, len(closes))

	// prefix sums make each window average O(1).
	prefix := make([]float64, len(closes)+1)
	for i, c := range closes {
		prefix[i+1] = prefix[i] + c
	}
	avg := func(t, n int) float64 {
		return (prefix[t+1] - prefix[t+1-n]) / float64(n)
	}

	for t := s.Params.Long - 1; t < len(closes); t++ {
		if avg(t, s.Params.Short) > avg(t, s.Params.Long) {
			out[t] = model.SignalLong
		}
	}
	return out, nil
}

// BuyAndHold is long on every bar, so it buys on the first bar and never sells.
type BuyAndHold struct{}

func (BuyAndHold) Name() string { return "buy_and_hold" }

func (BuyAndHold) Signals(series model.PriceSeries) ([]model.Signal, error) {
	out := make([]model.Signal, series.Len())
	for i := range out {
		out[i] = model.SignalLong
	}
	return out, nil
}
