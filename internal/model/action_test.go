package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActionFromTransition(t *testing.T) {
	tests := []struct {
		prev, cur Signal
		want      Action
	}{
		{SignalFlat, SignalLong, ActionBuy},
		{SignalLong, SignalFlat, ActionSell},
		{SignalFlat, SignalFlat, ActionHold},
		{SignalLong, SignalLong, ActionHold},
		{SignalFlat, Signal(2), ActionHold},
		{Signal(2), SignalFlat, ActionHold},
		{Signal(-1), SignalLong, ActionHold},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ActionFromTransition(tt.prev, tt.cur), "prev=%d cur=%d", tt.prev, tt.cur)
	}
}

func TestPriceSeriesCloneIsIndependent(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := PriceSeries{Symbol: "AAPL", Index: []time.Time{ts}, Close: []float64{100}}

	c := s.Clone()
	c.Close[0] = 1
	c.Index[0] = ts.Add(time.Hour)

	assert.Equal(t, 100.0, s.Close[0])
	assert.Equal(t, ts, s.Index[0])
}

func TestDatasetTruncate(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d := Dataset{
		Index: []time.Time{ts, ts.Add(time.Hour), ts.Add(2 * time.Hour)},
		Instruments: []PriceSeries{{
			Symbol: "AAPL",
			Index:  []time.Time{ts, ts.Add(time.Hour), ts.Add(2 * time.Hour)},
			Close:  []float64{1, 2, 3},
		}},
		Benchmark: []float64{10, 11, 12, 13},
	}

	out := d.Truncate(2)
	assert.Len(t, out.Index, 2)
	assert.Equal(t, []float64{1, 2}, out.Instruments[0].Close)
	assert.Equal(t, []float64{10, 11}, out.Benchmark)

	assert.Len(t, d.Truncate(0).Index, 0)
	assert.Len(t, d.Truncate(10).Index, 3)
}
