package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/logging"
	"multiasset-backtest/internal/model"
	"multiasset-backtest/internal/report"
	"multiasset-backtest/internal/strategy"
)

// Demo:
// - Generate random-walk closes for a few instruments and a benchmark
// - Run every built-in strategy over the same dataset
// - Print a comparison and the full result of the best run
func main() {
	symbolsFlag := flag.String("symbols", "AAA,BBB,CCC", "Comma-separated synthetic symbols")
	n := flag.Int("n", 252, "Number of daily bars to generate")
	seed := flag.Int64("seed", 7, "Random seed")
	capital := flag.Float64("capital", 10000, "Initial capital")
	outDir := flag.String("out", "", "Optional directory to write the generated bars as CSV")
	flag.Parse()

	log, err := logging.New(logging.Config{Level: "warn"})
	if err != nil {
		panic(err)
	}

	symbols := strings.Split(*symbolsFlag, ",")
	rng := rand.New(rand.NewSource(*seed))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	bars := make(map[string][]model.Bar, len(symbols)+1)
	for i, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		symbols[i] = sym
		bars[sym] = randomWalk(rng, start, *n, 50+rng.Float64()*100, 0.0004, 0.02)
	}
	bars["SPY"] = randomWalk(rng, start, *n, 400, 0.0003, 0.01)

	if *outDir != "" {
		for sym, b := range bars {
			if err := data.WriteBarsCSV(filepath.Join(*outDir, sym+".csv"), b); err != nil {
				panic(err)
			}
		}
		fmt.Printf("Wrote %d CSV files to %s\n", len(bars), *outDir)
	}

	ds, err := data.Align(bars, symbols, "SPY", bars["SPY"])
	if err != nil {
		panic(err)
	}

	engine := backtest.New(log)
	opts := backtest.DefaultOptions()
	opts.InitialCapital = *capital

	var (
		labels  []string
		results []*backtest.Result
		best    *backtest.Result
	)
	for _, info := range strategy.DefaultRegistry().List() {
		strat, err := strategy.FromConfig(info.Name, nil)
		if err != nil {
			panic(err)
		}
		res, err := engine.Run(context.Background(), ds, strat, opts)
		if err != nil {
			panic(err)
		}
		label := info.Name
		if info.Lookahead {
			label += " (lookahead)"
		} else if best == nil || res.FinalValue > best.FinalValue {
			best = res
		}
		labels = append(labels, label)
		results = append(results, res)
	}

	report.CompareTable(os.Stdout, labels, results)
	if best != nil {
		fmt.Println()
		report.Console(os.Stdout, "BEST NON-LOOKAHEAD STRATEGY", best)
	}
}

// randomWalk generates n daily bars of geometric Brownian motion.
func randomWalk(rng *rand.Rand, start time.Time, n int, first, drift, vol float64) []model.Bar {
	out := make([]model.Bar, n)
	price := first
	for i := 0; i < n; i++ {
		if i > 0 {
			price *= math.Exp(drift - vol*vol/2 + vol*rng.NormFloat64())
		}
		out[i] = model.Bar{
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    float64(1000 + rng.Intn(9000)),
		}
	}
	return out
}
