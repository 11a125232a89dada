package metrics

// SimpleReturns returns r[i] = (v[i+1]-v[i]) / v[i].
// Fewer than two values give an empty slice.
func SimpleReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}
	out := make([]float64, len(values)-1)
	for i := 0; i < len(values)-1; i++ {
		out[i] = (values[i+1] - values[i]) / values[i]
	}
	return out
}

// TotalReturn is last/first - 1, or 0 when it cannot be computed.
func TotalReturn(values []float64) float64 {
	if len(values) < 2 || values[0] == 0 {
		return 0
	}
	return finiteOrZero(values[len(values)-1]/values[0] - 1)
}

// MaxDrawdown is the largest peak-to-trough decline as a positive fraction.
func MaxDrawdown(values []float64) float64 {
	peak := 0.0
	maxDD := 0.0
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return finiteOrZero(maxDD)
}
