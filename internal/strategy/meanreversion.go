package strategy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"multiasset-backtest/internal/model"
)

// MeanReversionParams configures a z-score entry:
// - rolling mean and sample standard deviation over Window closes
//   (fewer at the start of the series)
// - long while (close - mean) / std < -Threshold, flat otherwise
//
// Bars where the z-score is undefined (a single observation or zero spread)
// are flat.
type MeanReversionParams struct {
	Window    int
	Threshold float64
}

func DefaultMeanReversionParams() MeanReversionParams {
	return MeanReversionParams{Window: 20, Threshold: 1.0}
}

type MeanReversion struct {
	Params MeanReversionParams
}

func NewMeanReversion(p MeanReversionParams) (*MeanReversion, error) {
	if p.Window < 1 {
		return nil, fmt.Errorf("mean_reversion: window must be >= 1, got %d", p.Window)
	}
	if math.IsNaN(p.Threshold) || math.IsInf(p.Threshold, 0) {
		return nil, fmt.Errorf("mean_reversion: threshold must be finite")
	}
	return &MeanReversion{Params: p}, nil
}

func (s *MeanReversion) Name() string { return "mean_reversion" }

func (s *MeanReversion) Signals(series model.PriceSeries) ([]model.Signal, error) {
	out := make([]model.Signal, series.Len())
	for t := range series.Close {
		z, ok := s.zscore(series.Close, t)
		if ok && z < -s.Params.Threshold {
			out[t] = model.SignalLong
		}
	}
	return out, nil
}

func (s *MeanReversion) zscore(closes []float64, t int) (float64, bool) {
	lo := t - s.Params.Window + 1
	if lo < 0 {
		lo = 0
	}
	window := closes[lo : t+1]
	if len(window) < 2 {
		return 0, false
	}
	mean, std := stat.MeanStdDev(window, nil)
	if !(std > 1e-12*math.Max(1, math.Abs(mean))) {
		return 0, false
	}
	z := (closes[t] - mean) / std
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, false
	}
	return z, true
}
