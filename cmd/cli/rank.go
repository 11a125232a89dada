package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"multiasset-backtest/internal/analysis"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/model"
	"multiasset-backtest/internal/report"
)

var (
	rankProvider string
	rankSymbols  string
	rankStart    string
	rankEnd      string
	rankInterval string
	rankLimit    int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank instruments by hindsight long-only return",
	Long: `Computes a perfect-foresight long-only return per instrument together
with volatility, drawdown and return spread, then prints the best ones.
Symbols default to the local universe file.`,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringVar(&rankProvider, "provider", config.DefaultProvider, "Data provider: csv, parquet or alpaca")
	rankCmd.Flags().StringVar(&rankSymbols, "symbols", "", "Comma-separated symbols (default: universe)")
	rankCmd.Flags().StringVar(&rankStart, "start", "", "Start date YYYY-MM-DD (required)")
	rankCmd.Flags().StringVar(&rankEnd, "end", "", "End date YYYY-MM-DD, inclusive (required)")
	rankCmd.Flags().StringVar(&rankInterval, "interval", config.DefaultInterval, "Bar interval")
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "Show only the top N (0=all)")
	_ = rankCmd.MarkFlagRequired("start")
	_ = rankCmd.MarkFlagRequired("end")
}

func runRank(cmd *cobra.Command, args []string) error {
	env := config.FromEnv()
	log, err := newLogger(config.LogConfig{}, env)
	if err != nil {
		return err
	}

	symbols := splitSymbols(rankSymbols)
	if len(symbols) == 0 {
		u, err := data.LoadUniverse(data.DefaultUniversePath())
		if err != nil {
			return fmt.Errorf("no --symbols given and no universe: %w", err)
		}
		symbols = u.Symbols()
	}
	if len(symbols) == 0 {
		return errors.New("no symbols to rank")
	}

	cfg := config.Config{Data: config.DataConfig{Provider: rankProvider, Start: rankStart, End: rankEnd, Interval: rankInterval, Symbols: symbols}}
	cfg.ApplyEnv(env)
	q, err := cfg.Query()
	if err != nil {
		return err
	}
	p, err := data.NewProvider(rankProvider, cfg.ProviderOptions(env), log)
	if err != nil {
		return err
	}

	started := time.Now()
	bars, err := p.Bars(cmd.Context(), q)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(bars))
	for sym := range bars {
		keys = append(keys, sym)
	}
	sort.Strings(keys)
	series := make([]model.PriceSeries, 0, len(keys))
	for _, sym := range keys {
		series = append(series, data.Series(sym, bars[sym]))
	}

	ranked := analysis.Top(analysis.RankByHindsight(series), rankLimit)
	log.WithField("instruments", len(series)).WithField("elapsed", time.Since(started)).Debug("ranked")
	report.RankTable(cmd.OutOrStdout(), ranked)
	return nil
}
