package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"multiasset-backtest/internal/metrics"
	"multiasset-backtest/internal/model"
	"multiasset-backtest/internal/strategy"
)

var (
	ErrMisalignedSeries = errors.New("series length does not match index")
	ErrInvalidPrice     = errors.New("close must be finite and > 0")
	ErrUnsortedIndex    = errors.New("index must be strictly increasing")
)

type Options struct {
	InitialCapital float64
	RiskFreeRate   float64
	// Workers bounds parallel signal derivation; <= 0 means GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{
		InitialCapital: 100,
		RiskFreeRate:   metrics.DefaultRiskFreeRate,
	}
}

type Engine struct {
	log logrus.FieldLogger
}

// New returns an engine that logs to log. A nil logger discards output.
func New(log logrus.FieldLogger) *Engine {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Engine{log: log}
}

// Run executes strat over every instrument in ds and simulates the portfolio
// bar by bar. Signals are derived once per instrument before the loop; the
// loop itself is sequential and sees only bar t on step t.
func (e *Engine) Run(ctx context.Context, ds model.Dataset, strat strategy.Strategy, opts Options) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("strategy is nil")
	}
	if !(opts.InitialCapital > 0) || math.IsInf(opts.InitialCapital, 0) {
		return nil, fmt.Errorf("initial capital must be > 0, got %v", opts.InitialCapital)
	}
	if err := validateDataset(ds); err != nil {
		return nil, err
	}

	log := e.log.WithField("strategy", strat.Name())
	res := &Result{
		Strategy:   strat.Name(),
		Symbols:    ds.Symbols(),
		FinalValue: opts.InitialCapital,
		Summary:    Summary{InitialCapital: opts.InitialCapital},
		Positions:  map[string]Holding{},
	}
	if len(ds.Index) == 0 {
		log.Info("empty index, nothing to simulate")
		return res, nil
	}

	signals, err := e.deriveSignals(ctx, ds, strat, opts.Workers)
	if err != nil {
		return nil, err
	}

	pf := NewPortfolio(opts.InitialCapital)
	prev := make([]model.Signal, len(ds.Instruments))
	ledger := make([]LedgerRow, 0, len(ds.Index))
	exposed := 0

	for t, ts := range ds.Index {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var buys, sells []int
		for i := range ds.Instruments {
			cur := signals[i][t]
			switch model.ActionFromTransition(prev[i], cur) {
			case model.ActionBuy:
				buys = append(buys, i)
			case model.ActionSell:
				sells = append(sells, i)
			}
			prev[i] = cur
		}

		row := LedgerRow{Index: t, Timestamp: ts}

		for _, i := range sells {
			inst := ds.Instruments[i]
			fill, ok := pf.Sell(inst.Symbol, inst.Close[t])
			if !ok {
				continue
			}
			row.Sells = append(row.Sells, inst.Symbol)
			res.Fills = append(res.Fills, TradeRecord{Index: t, Timestamp: ts, Fill: fill})
			log.WithFields(logrus.Fields{"bar": t, "symbol": inst.Symbol, "price": fill.Price}).Debug("sell")
		}

		// A symbol can only reach a 0->1 transition while still holding if the
		// strategy emitted values outside {0,1}; those buys are dropped.
		buys = e.dropHeld(pf, ds, buys, t)
		if len(buys) > 0 {
			// cash can drift a hair below zero after an even split
			allocation := max(pf.Cash()/float64(len(buys)), 0)
			row.Allocation = allocation
			if allocation == 0 {
				log.WithFields(logrus.Fields{"bar": t, "pending": len(buys)}).Debug("no cash to allocate, opening zero-share positions")
			}
			for _, i := range buys {
				inst := ds.Instruments[i]
				fill, err := pf.Buy(inst.Symbol, inst.Close[t], allocation)
				if err != nil {
					return nil, fmt.Errorf("bar %d: %w", t, err)
				}
				row.Buys = append(row.Buys, inst.Symbol)
				res.Fills = append(res.Fills, TradeRecord{Index: t, Timestamp: ts, Fill: fill})
				log.WithFields(logrus.Fields{"bar": t, "symbol": inst.Symbol, "price": fill.Price, "allocation": allocation}).Debug("buy")
			}
		}

		holdings := 0.0
		for _, inst := range ds.Instruments {
			holdings += pf.MarkToMarket(inst.Symbol, inst.Close[t])
		}
		if len(pf.HeldSymbols()) > 0 {
			exposed++
		}

		row.Cash = pf.Cash()
		row.HoldingsValue = holdings
		row.PortfolioValue = pf.Cash() + holdings
		row.Trades = pf.Trades()
		if t < len(ds.Benchmark) {
			row.Benchmark = ds.Benchmark[t]
		}
		ledger = append(ledger, row)
	}

	res.Ledger = ledger
	res.Trades = pf.Trades()
	res.FinalValue = ledger[len(ledger)-1].PortfolioValue
	res.Positions = pf.Positions()

	values := res.PortfolioValues()
	bench := ds.Benchmark
	n := min(len(values), len(bench))
	res.Metrics = metrics.Calculate(values[:n], bench[:n], opts.RiskFreeRate)

	res.Summary = Summary{
		Bars:            len(ledger),
		Start:           ds.Index[0],
		End:             ds.Index[len(ds.Index)-1],
		InitialCapital:  opts.InitialCapital,
		TotalReturn:     (res.FinalValue - opts.InitialCapital) / opts.InitialCapital,
		BenchmarkReturn: metrics.TotalReturn(bench[:n]),
		MaxDrawdown:     metrics.MaxDrawdown(values),
		Exposure:        float64(exposed) / float64(len(ledger)),
	}

	log.WithFields(logrus.Fields{
		"bars":        len(ledger),
		"trades":      res.Trades,
		"final_value": res.FinalValue,
		"sharpe":      res.Metrics.Sharpe,
	}).Info("backtest complete")
	return res, nil
}

// deriveSignals runs the strategy once per instrument. Each call gets its own
// copy of the series, so calls can run in parallel.
func (e *Engine) deriveSignals(ctx context.Context, ds model.Dataset, strat strategy.Strategy, workers int) ([][]model.Signal, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	started := time.Now()
	out := make([][]model.Signal, len(ds.Instruments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, inst := range ds.Instruments {
		i, inst := i, inst
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sig, err := strat.Signals(inst.Clone())
			if err != nil {
				return fmt.Errorf("strategy %s on %s: %w", strat.Name(), inst.Symbol, err)
			}
			if len(sig) != len(ds.Index) {
				return fmt.Errorf("strategy %s on %s returned %d signals for %d bars: %w",
					strat.Name(), inst.Symbol, len(sig), len(ds.Index), ErrMisalignedSeries)
			}
			out[i] = sig
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{
		"strategy":    strat.Name(),
		"instruments": len(ds.Instruments),
		"elapsed":     time.Since(started),
	}).Debug("signals derived")
	return out, nil
}

func (e *Engine) dropHeld(pf *Portfolio, ds model.Dataset, buys []int, t int) []int {
	kept := buys[:0]
	for _, i := range buys {
		sym := ds.Instruments[i].Symbol
		if IsHolding(pf.Position(sym)) {
			e.log.WithFields(logrus.Fields{"bar": t, "symbol": sym}).Warn("buy signal while already holding, ignored")
			continue
		}
		kept = append(kept, i)
	}
	return kept
}

func validateDataset(ds model.Dataset) error {
	for t := 1; t < len(ds.Index); t++ {
		if !ds.Index[t].After(ds.Index[t-1]) {
			return fmt.Errorf("bar %d (%s): %w", t, ds.Index[t].Format(time.RFC3339), ErrUnsortedIndex)
		}
	}
	seen := make(map[string]bool, len(ds.Instruments))
	for _, inst := range ds.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instrument with empty symbol")
		}
		if seen[inst.Symbol] {
			return fmt.Errorf("duplicate instrument %s", inst.Symbol)
		}
		seen[inst.Symbol] = true

		if len(inst.Close) != len(ds.Index) {
			return fmt.Errorf("%s has %d closes for %d bars: %w", inst.Symbol, len(inst.Close), len(ds.Index), ErrMisalignedSeries)
		}
		for t, c := range inst.Close {
			if !(c > 0) || math.IsInf(c, 0) {
				return fmt.Errorf("%s bar %d close %v: %w", inst.Symbol, t, c, ErrInvalidPrice)
			}
		}
	}
	return nil
}
