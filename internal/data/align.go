package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"multiasset-backtest/internal/model"
)

// Align turns per-symbol bars into a Dataset on a shared time index.
//
// The index is the sorted union of every instrument's timestamps. Each
// instrument is forward-filled onto it and leading bars where any instrument
// has not printed yet are dropped. The benchmark is reindexed with forward
// fill; bars before its first observation take that first value.
func Align(bars map[string][]model.Bar, symbols []string, benchmarkSymbol string, benchmark []model.Bar) (model.Dataset, error) {
	if len(symbols) == 0 {
		return model.Dataset{}, fmt.Errorf("no symbols to align")
	}
	seen := make(map[int64]time.Time)
	for _, sym := range symbols {
		series, ok := bars[sym]
		if !ok || len(series) == 0 {
			return model.Dataset{}, fmt.Errorf("no bars for %s", sym)
		}
		for _, b := range series {
			seen[b.Timestamp.UnixNano()] = b.Timestamp.UTC()
		}
	}
	index := make([]time.Time, 0, len(seen))
	for _, ts := range seen {
		index = append(index, ts)
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })

	closes := make([][]float64, len(symbols))
	start := 0
	for i, sym := range symbols {
		filled, first := forwardFill(index, bars[sym])
		closes[i] = filled
		if first > start {
			start = first
		}
	}
	if start >= len(index) {
		return model.Dataset{}, fmt.Errorf("instruments have no overlapping bars")
	}
	index = index[start:]

	ds := model.Dataset{
		Index:           index,
		BenchmarkSymbol: benchmarkSymbol,
		Instruments:     make([]model.PriceSeries, len(symbols)),
	}
	for i, sym := range symbols {
		ds.Instruments[i] = model.PriceSeries{Symbol: sym, Index: index, Close: closes[i][start:]}
	}
	if len(benchmark) > 0 {
		bench, first := forwardFill(index, benchmark)
		// Bars before the benchmark's first close are back-filled with that
		// close rather than left empty, so every bar carries a benchmark
		// value and the leading returns read as flat.
		if first < len(bench) {
			for j := 0; j < first; j++ {
				bench[j] = bench[first]
			}
		} else {
			// benchmark starts after the index ends
			firstClose := sortedBars(benchmark)[0].Close
			for j := range bench {
				bench[j] = firstClose
			}
		}
		ds.Benchmark = bench
	}
	return ds, nil
}

// forwardFill maps bars onto index carrying the last close forward. It
// returns the filled closes and the position of the first filled value
// (len(index) when none).
func forwardFill(index []time.Time, bars []model.Bar) ([]float64, int) {
	bars = sortedBars(bars)
	out := make([]float64, len(index))
	first := len(index)
	j := 0
	last := 0.0
	have := false
	for i, ts := range index {
		for j < len(bars) && !bars[j].Timestamp.After(ts) {
			last = bars[j].Close
			have = true
			j++
		}
		if have {
			out[i] = last
			if first == len(index) {
				first = i
			}
		}
	}
	return out, first
}

func sortedBars(bars []model.Bar) []model.Bar {
	if sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) }) {
		return bars
	}
	out := append([]model.Bar(nil), bars...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// LoadDataset fetches the instruments and the benchmark in one query and
// aligns them. An empty benchmarkSymbol yields a dataset without benchmark.
func LoadDataset(ctx context.Context, p Provider, q Query, benchmarkSymbol string) (model.Dataset, error) {
	symbols := make([]string, 0, len(q.Symbols))
	for _, s := range q.Symbols {
		symbols = append(symbols, strings.ToUpper(strings.TrimSpace(s)))
	}
	benchmarkSymbol = strings.ToUpper(strings.TrimSpace(benchmarkSymbol))

	fetch := append([]string(nil), symbols...)
	if benchmarkSymbol != "" && !contains(fetch, benchmarkSymbol) {
		fetch = append(fetch, benchmarkSymbol)
	}
	q.Symbols = fetch

	bars, err := p.Bars(ctx, q)
	if err != nil {
		return model.Dataset{}, err
	}
	var bench []model.Bar
	if benchmarkSymbol != "" {
		bench = bars[benchmarkSymbol]
	}
	return Align(bars, symbols, benchmarkSymbol, bench)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Series converts one instrument's bars to a close series on its own index.
func Series(symbol string, bars []model.Bar) model.PriceSeries {
	bars = sortedBars(bars)
	s := model.PriceSeries{
		Symbol: symbol,
		Index:  make([]time.Time, len(bars)),
		Close:  make([]float64, len(bars)),
	}
	for i, b := range bars {
		s.Index[i] = b.Timestamp
		s.Close[i] = b.Close
	}
	return s
}
