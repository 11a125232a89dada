package model

import (
	"fmt"
	"time"
)

// Bar is one OHLCV observation for a single instrument.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// PriceSeries is the close history of one instrument aligned to a time index.
// Index and Close always have the same length.
type PriceSeries struct {
	Symbol string
	Index  []time.Time
	Close  []float64
}

func (s PriceSeries) Len() int { return len(s.Close) }

// Clone returns a deep copy so callers can hand the series to code that
// must not be able to mutate the original.
func (s PriceSeries) Clone() PriceSeries {
	out := PriceSeries{Symbol: s.Symbol}
	if s.Index != nil {
		out.Index = append([]time.Time(nil), s.Index...)
	}
	if s.Close != nil {
		out.Close = append([]float64(nil), s.Close...)
	}
	return out
}

// Dataset is everything the engine consumes: a shared time index, one close
// series per instrument and the benchmark closes.
//
// Benchmark is usually aligned to Index but may be longer or shorter; the
// engine compares only the common prefix.
type Dataset struct {
	Index           []time.Time
	Instruments     []PriceSeries
	BenchmarkSymbol string
	Benchmark       []float64
}

func (d Dataset) Symbols() []string {
	out := make([]string, 0, len(d.Instruments))
	for _, s := range d.Instruments {
		out = append(out, s.Symbol)
	}
	return out
}

// Truncate keeps only the first n bars of every series.
func (d Dataset) Truncate(n int) Dataset {
	if n < 0 || n >= len(d.Index) {
		return d
	}
	out := Dataset{
		Index:           d.Index[:n],
		BenchmarkSymbol: d.BenchmarkSymbol,
		Instruments:     make([]PriceSeries, len(d.Instruments)),
	}
	for i, s := range d.Instruments {
		out.Instruments[i] = PriceSeries{Symbol: s.Symbol, Index: s.Index[:n], Close: s.Close[:n]}
	}
	if len(d.Benchmark) > n {
		out.Benchmark = d.Benchmark[:n]
	} else {
		out.Benchmark = d.Benchmark
	}
	return out
}

// Window returns the first and last timestamps of the index.
func (d Dataset) Window() (time.Time, time.Time, error) {
	if len(d.Index) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("empty index")
	}
	return d.Index[0], d.Index[len(d.Index)-1], nil
}
