package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/report"
	"multiasset-backtest/internal/store"
	"multiasset-backtest/internal/strategy"
)

var (
	btConfigPath string
	btOutDir     string
	btXLSXPath   string
	btSave       bool
	btLimit      int

	cmpConfigPaths []string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one backtest from a YAML config",
	RunE:  runBacktest,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run several configs and print them side by side",
	RunE:  runCompare,
}

func init() {
	backtestCmd.Flags().StringVar(&btConfigPath, "config", "", "Path to YAML config (required)")
	backtestCmd.Flags().StringVar(&btOutDir, "out", "", "Directory for ledger.csv and fills.csv")
	backtestCmd.Flags().StringVar(&btXLSXPath, "xlsx", "", "Optional Excel report path")
	backtestCmd.Flags().BoolVar(&btSave, "save", false, "Persist the run to RESULTS_DB")
	backtestCmd.Flags().IntVarP(&btLimit, "limit", "n", 0, "Limit to the first N bars (0=all)")
	_ = backtestCmd.MarkFlagRequired("config")

	compareCmd.Flags().StringArrayVar(&cmpConfigPaths, "config", nil, "Config to include (repeatable)")
	_ = compareCmd.MarkFlagRequired("config")
}

type loadedRun struct {
	cfg *config.Config
	res *backtest.Result
}

// runFromConfig loads data for cfg and runs it through the engine.
func runFromConfig(ctx context.Context, path string, env config.Env, log logrus.FieldLogger, limit int) (*loadedRun, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(env)

	p, err := data.NewProvider(cfg.Data.Provider, cfg.ProviderOptions(env), log)
	if err != nil {
		return nil, err
	}
	q, err := cfg.Query()
	if err != nil {
		return nil, err
	}
	ds, err := data.LoadDataset(ctx, p, q, benchmarkSymbol(cfg.Data.Benchmark))
	if err != nil {
		return nil, err
	}
	if limit > 0 {
		ds = ds.Truncate(limit)
	}

	strat, err := strategy.FromConfig(cfg.Strategy.Name, cfg.Strategy.Params)
	if err != nil {
		return nil, err
	}
	res, err := backtest.New(log).Run(ctx, ds, strat, cfg.BacktestOptions())
	if err != nil {
		return nil, err
	}
	return &loadedRun{cfg: cfg, res: res}, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	env := config.FromEnv()
	peek, err := config.LoadUnchecked(btConfigPath)
	if err != nil {
		return err
	}
	log, err := newLogger(peek.Log, env)
	if err != nil {
		return err
	}

	run, err := runFromConfig(cmd.Context(), btConfigPath, env, log, btLimit)
	if err != nil {
		return err
	}
	res := run.res

	title := fmt.Sprintf("%s on %s", res.Strategy, strings.Join(res.Symbols, ", "))
	report.Console(cmd.OutOrStdout(), title, res)

	if btOutDir != "" {
		if err := backtest.WriteLedgerCSV(filepath.Join(btOutDir, "ledger.csv"), res.Ledger); err != nil {
			return err
		}
		if err := backtest.WriteFillsCSV(filepath.Join(btOutDir, "fills.csv"), res.Fills); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d ledger rows and %d fills to %s\n", len(res.Ledger), len(res.Fills), btOutDir)
	}
	if btXLSXPath != "" {
		if err := report.WriteWorkbook(btXLSXPath, res); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote workbook to %s\n", btXLSXPath)
	}
	if btSave {
		s, err := store.NewSQLiteStore(env.ResultsDB)
		if err != nil {
			return err
		}
		defer s.Close()
		saved := &store.Run{
			Strategy:  run.cfg.Strategy.Name,
			Params:    run.cfg.Strategy.Params,
			Benchmark: benchmarkSymbol(run.cfg.Data.Benchmark),
			Result:    res,
		}
		if err := s.SaveRun(cmd.Context(), saved); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved run %s to %s\n", saved.ID, env.ResultsDB)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	env := config.FromEnv()
	log, err := newLogger(config.LogConfig{}, env)
	if err != nil {
		return err
	}

	labels := make([]string, 0, len(cmpConfigPaths))
	results := make([]*backtest.Result, 0, len(cmpConfigPaths))
	for _, path := range cmpConfigPaths {
		run, err := runFromConfig(cmd.Context(), path, env, log, 0)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		labels = append(labels, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		results = append(results, run.res)
	}
	report.CompareTable(cmd.OutOrStdout(), labels, results)
	return nil
}

