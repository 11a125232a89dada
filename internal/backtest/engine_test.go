package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiasset-backtest/internal/metrics"
	"multiasset-backtest/internal/model"
)

// fixedStrategy returns preset signals per symbol.
type fixedStrategy struct {
	signals map[string][]int
	err     error
	mutate  bool
}

func (s *fixedStrategy) Name() string { return "fixed" }

func (s *fixedStrategy) Signals(series model.PriceSeries) ([]model.Signal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.mutate {
		for i := range series.Close {
			series.Close[i] = -1
		}
	}
	raw := s.signals[series.Symbol]
	out := make([]model.Signal, len(raw))
	for i, v := range raw {
		out[i] = model.Signal(v)
	}
	return out, nil
}

func index(n int) []time.Time {
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func dataset(closes map[string][]float64, order ...string) model.Dataset {
	n := len(closes[order[0]])
	idx := index(n)
	ds := model.Dataset{Index: idx}
	for _, sym := range order {
		ds.Instruments = append(ds.Instruments, model.PriceSeries{Symbol: sym, Index: idx, Close: closes[sym]})
	}
	return ds
}

func opts(capital float64) Options {
	o := DefaultOptions()
	o.InitialCapital = capital
	return o
}

func TestRunSingleRoundTrip(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 100, 100}}, "A")
	strat := &fixedStrategy{signals: map[string][]int{"A": {0, 1, 0}}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Trades)
	assert.InDelta(t, 1000.0, res.FinalValue, 1e-9)
	assert.Equal(t, []float64{1000, 1000, 1000}, res.PortfolioValues())
	require.Len(t, res.Fills, 2)
	assert.Equal(t, model.ActionBuy, res.Fills[0].Side)
	assert.Equal(t, 1, res.Fills[0].Index)
	assert.Equal(t, model.ActionSell, res.Fills[1].Side)
	assert.Equal(t, 2, res.Fills[1].Index)
	assert.Empty(t, res.Positions)
}

func TestRunAllocationIsSnapshotPerBar(t *testing.T) {
	ds := dataset(map[string][]float64{
		"A": {100, 100, 100},
		"B": {100, 100, 100},
	}, "A", "B")
	strat := &fixedStrategy{signals: map[string][]int{
		"A": {0, 1, 1},
		"B": {0, 0, 1},
	}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	// A is the only buy at t1 and takes all the cash; B's buy at t2 opens
	// with nothing left to allocate.
	assert.Equal(t, 2, res.Trades)
	assert.InDelta(t, 1000.0, res.FinalValue, 1e-9)
	assert.InDelta(t, 1000.0, res.Ledger[1].Allocation, 1e-9)
	assert.Equal(t, 0.0, res.Ledger[2].Allocation)
	assert.Equal(t, []string{"B"}, res.Ledger[2].Buys)
	require.Contains(t, res.Positions, "A")
	assert.InDelta(t, 10.0, res.Positions["A"].Shares, 1e-12)
	require.Contains(t, res.Positions, "B")
	assert.Equal(t, 0.0, res.Positions["B"].Shares)
}

func TestRunCountsZeroShareRoundTrip(t *testing.T) {
	ds := dataset(map[string][]float64{
		"A": {100, 100, 100, 100},
		"B": {100, 100, 100, 100},
	}, "A", "B")
	strat := &fixedStrategy{signals: map[string][]int{
		"A": {0, 1, 1, 1},
		"B": {0, 0, 1, 0},
	}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	// A buys at t1, B opens empty at t2 and closes at t3.
	assert.Equal(t, 3, res.Trades)
	assert.InDelta(t, 1000.0, res.FinalValue, 1e-9)
	assert.Equal(t, []string{"B"}, res.Ledger[3].Sells)
	require.Len(t, res.Fills, 3)
	assert.Equal(t, model.ActionSell, res.Fills[2].Side)
	assert.Equal(t, 0.0, res.Fills[2].Amount)
	assert.NotContains(t, res.Positions, "B")
}

func TestRunSplitsCashEquallyAcrossSameBarBuys(t *testing.T) {
	ds := dataset(map[string][]float64{
		"A": {100, 100},
		"B": {50, 50},
	}, "A", "B")
	strat := &fixedStrategy{signals: map[string][]int{
		"A": {0, 1},
		"B": {0, 1},
	}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Trades)
	assert.InDelta(t, 500.0, res.Ledger[1].Allocation, 1e-9)
	assert.InDelta(t, 5.0, res.Positions["A"].Shares, 1e-12)
	assert.InDelta(t, 10.0, res.Positions["B"].Shares, 1e-12)
	assert.InDelta(t, 0.0, res.Ledger[1].Cash, 1e-9)
	assert.Equal(t, []string{"A", "B"}, res.Ledger[1].Buys)
}

func TestRunSellsBeforeBuys(t *testing.T) {
	ds := dataset(map[string][]float64{
		"A": {100, 200},
		"B": {50, 50},
	}, "A", "B")
	strat := &fixedStrategy{signals: map[string][]int{
		"A": {1, 0},
		"B": {0, 1},
	}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	// sale proceeds of A (2000) fund B on the same bar.
	assert.Equal(t, 3, res.Trades)
	assert.InDelta(t, 2000.0, res.Ledger[1].Allocation, 1e-9)
	assert.InDelta(t, 40.0, res.Positions["B"].Shares, 1e-9)
	assert.InDelta(t, 2000.0, res.FinalValue, 1e-9)
	require.Len(t, res.Fills, 3)
	assert.Equal(t, model.ActionSell, res.Fills[1].Side)
	assert.Equal(t, model.ActionBuy, res.Fills[2].Side)
}

func TestRunDoesNotLiquidateAtEnd(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 110, 120}}, "A")
	strat := &fixedStrategy{signals: map[string][]int{"A": {1, 1, 1}}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Trades)
	assert.InDelta(t, 1200.0, res.FinalValue, 1e-9)
	assert.InDelta(t, 1200.0, res.Ledger[2].HoldingsValue, 1e-9)
	assert.Contains(t, res.Positions, "A")
	assert.Equal(t, 1.0, res.Summary.Exposure)
	assert.InDelta(t, 0.2, res.Summary.TotalReturn, 1e-12)
}

func TestRunIgnoresOutOfRangeSignals(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 100, 100, 100}}, "A")
	strat := &fixedStrategy{signals: map[string][]int{"A": {0, 2, 0, 1}}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Trades)
	assert.Equal(t, 3, res.Fills[0].Index)
}

func TestRunIgnoresBuyWhileHolding(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 100, 100, 100}}, "A")
	// 1 -> 2 -> 0 never sells, so the final 0->1 arrives while still long.
	strat := &fixedStrategy{signals: map[string][]int{"A": {1, 2, 0, 1}}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Trades)
	assert.InDelta(t, 1000.0, res.FinalValue, 1e-9)
}

func TestRunEmptyIndex(t *testing.T) {
	ds := model.Dataset{Instruments: []model.PriceSeries{{Symbol: "A"}}}
	strat := &fixedStrategy{signals: map[string][]int{}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Trades)
	assert.Equal(t, 1000.0, res.FinalValue)
	assert.Equal(t, metrics.Result{}, res.Metrics)
	assert.Empty(t, res.Ledger)
}

func TestRunTruncatesLongerBenchmark(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 104, 101, 107, 103}}, "A")
	ds.Benchmark = []float64{50, 51, 50.5, 52, 51.5, 60, 70, 80}
	strat := &fixedStrategy{signals: map[string][]int{"A": {1, 1, 0, 1, 1}}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	want := metrics.Calculate(res.PortfolioValues(), ds.Benchmark[:5], metrics.DefaultRiskFreeRate)
	assert.Equal(t, want, res.Metrics)
	assert.InDelta(t, 51.5/50-1, res.Summary.BenchmarkReturn, 1e-12)
}

func TestRunShorterBenchmark(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 104, 101, 107, 103}}, "A")
	ds.Benchmark = []float64{50, 51, 50.5}
	strat := &fixedStrategy{signals: map[string][]int{"A": {1, 1, 1, 1, 1}}}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)

	want := metrics.Calculate(res.PortfolioValues()[:3], ds.Benchmark, metrics.DefaultRiskFreeRate)
	assert.Equal(t, want, res.Metrics)
	assert.Equal(t, 0.0, res.Ledger[4].Benchmark)
}

func TestRunStrategyGetsACopy(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 100, 100}}, "A")
	strat := &fixedStrategy{signals: map[string][]int{"A": {0, 1, 0}}, mutate: true}

	res, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 100, 100}, ds.Instruments[0].Close)
	assert.InDelta(t, 1000.0, res.FinalValue, 1e-9)
}

func TestRunValidation(t *testing.T) {
	good := dataset(map[string][]float64{"A": {100, 100, 100}}, "A")
	strat := &fixedStrategy{signals: map[string][]int{"A": {0, 1, 0}}}

	t.Run("short signal series", func(t *testing.T) {
		bad := &fixedStrategy{signals: map[string][]int{"A": {0, 1}}}
		_, err := New(nil).Run(context.Background(), good, bad, opts(1000))
		assert.ErrorIs(t, err, ErrMisalignedSeries)
	})

	t.Run("close length mismatch", func(t *testing.T) {
		ds := good
		ds.Instruments = []model.PriceSeries{{Symbol: "A", Close: []float64{100, 100}}}
		_, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
		assert.ErrorIs(t, err, ErrMisalignedSeries)
	})

	t.Run("non-positive close", func(t *testing.T) {
		ds := dataset(map[string][]float64{"A": {100, 0, 100}}, "A")
		_, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("nan close", func(t *testing.T) {
		ds := dataset(map[string][]float64{"A": {100, math.NaN(), 100}}, "A")
		_, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("unsorted index", func(t *testing.T) {
		ds := dataset(map[string][]float64{"A": {100, 100, 100}}, "A")
		ds.Index = []time.Time{ds.Index[0], ds.Index[2], ds.Index[1]}
		_, err := New(nil).Run(context.Background(), ds, strat, opts(1000))
		assert.ErrorIs(t, err, ErrUnsortedIndex)
	})

	t.Run("non-positive capital", func(t *testing.T) {
		_, err := New(nil).Run(context.Background(), good, strat, opts(0))
		assert.Error(t, err)
	})

	t.Run("nil strategy", func(t *testing.T) {
		_, err := New(nil).Run(context.Background(), good, nil, opts(1000))
		assert.Error(t, err)
	})
}

func TestRunPropagatesStrategyError(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 100}}, "A")
	boom := errors.New("boom")

	_, err := New(nil).Run(context.Background(), ds, &fixedStrategy{err: boom}, opts(1000))
	assert.ErrorIs(t, err, boom)
}

func TestRunHonoursCancellation(t *testing.T) {
	ds := dataset(map[string][]float64{"A": {100, 100}}, "A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil).Run(ctx, ds, &fixedStrategy{signals: map[string][]int{"A": {0, 1}}}, opts(1000))
	assert.ErrorIs(t, err, context.Canceled)
}
