package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
)

var (
	fetchSymbols  string
	fetchStart    string
	fetchEnd      string
	fetchInterval string
	fetchFeed     string
	fetchCSV      bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download bars from Alpaca into the local parquet store",
	Long: `Downloads bars from the Alpaca market data API, merges them into
STORE_DIR/<interval>/<SYMBOL>.parquet and records each symbol in the
universe file. With --csv the bars are also written to CSV_DIR.

Requires ALPACA_API_KEY and ALPACA_API_SECRET.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchSymbols, "symbols", "", "Comma-separated symbols (required)")
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "Start date YYYY-MM-DD (required)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "End date YYYY-MM-DD, inclusive (required)")
	fetchCmd.Flags().StringVar(&fetchInterval, "interval", config.DefaultInterval, "Bar interval")
	fetchCmd.Flags().StringVar(&fetchFeed, "feed", "iex", "Alpaca feed: iex or sip")
	fetchCmd.Flags().BoolVar(&fetchCSV, "csv", false, "Also write CSV files")
	_ = fetchCmd.MarkFlagRequired("symbols")
	_ = fetchCmd.MarkFlagRequired("start")
	_ = fetchCmd.MarkFlagRequired("end")
}

func runFetch(cmd *cobra.Command, args []string) error {
	env := config.FromEnv()
	log, err := newLogger(config.LogConfig{}, env)
	if err != nil {
		return err
	}

	cfg := config.Config{Data: config.DataConfig{
		Provider: "alpaca",
		Symbols:  splitSymbols(fetchSymbols),
		Start:    fetchStart,
		End:      fetchEnd,
		Interval: fetchInterval,
		Feed:     fetchFeed,
	}}
	cfg.ApplyEnv(env)
	q, err := cfg.Query()
	if err != nil {
		return err
	}
	iv, err := data.ParseInterval(q.Interval)
	if err != nil {
		return err
	}

	p, err := data.NewAlpacaProvider(cfg.ProviderOptions(env).Alpaca, log)
	if err != nil {
		return err
	}
	bars, err := p.Bars(cmd.Context(), q)
	if err != nil {
		return err
	}

	storeDir := cfg.Data.StoreDir
	parquetStore := data.NewParquetStore(storeDir)
	universePath := data.DefaultUniversePath()
	universe, err := data.LoadUniverse(universePath)
	if err != nil {
		universe = &data.Universe{}
	}

	for _, sym := range q.Symbols {
		symBars := bars[sym]
		if len(symBars) == 0 {
			log.WithField("symbol", sym).Warn("no bars returned")
			continue
		}
		if err := parquetStore.WriteBars(sym, iv.String(), symBars); err != nil {
			return fmt.Errorf("store %s: %w", sym, err)
		}
		if fetchCSV {
			if err := data.WriteBarsCSV(filepath.Join(cfg.Data.CSVDir, sym+".csv"), symBars); err != nil {
				return fmt.Errorf("csv %s: %w", sym, err)
			}
		}

		first, last := symBars[0].Timestamp, symBars[len(symBars)-1].Timestamp
		if stored, err := parquetStore.ReadBars(sym, iv.String(), time.Time{}, time.Time{}); err == nil && len(stored) > 0 {
			first, last = stored[0].Timestamp, stored[len(stored)-1].Timestamp
		}
		universe.Upsert(data.Instrument{
			Symbol:   sym,
			Provider: "alpaca",
			Interval: iv.String(),
			FirstBar: first.Format(time.RFC3339),
			LastBar:  last.Format(time.RFC3339),
		})
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %5d bars  %s .. %s\n", sym, len(symBars),
			symBars[0].Timestamp.Format("2006-01-02"), symBars[len(symBars)-1].Timestamp.Format("2006-01-02"))
	}

	universe.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := data.SaveUniverse(universe, universePath); err != nil {
		return err
	}
	log.WithField("file", universePath).Info("universe updated")
	return nil
}
