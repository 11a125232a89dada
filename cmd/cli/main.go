package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"multiasset-backtest/internal/config"
	"multiasset-backtest/internal/logging"
)

var (
	envFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "backtest-cli",
	Short: "Multi-asset long-only backtester",
	Long: `Runs signal-driven long-only backtests over several instruments with an
equal-weight allocation, compares configurations and ranks instruments by
their hindsight potential.

Examples:
  backtest-cli backtest --config configs/backtest.yaml --out results/
  backtest-cli compare --config configs/a.yaml --config configs/b.yaml
  backtest-cli rank --symbols AAPL,MSFT,NVDA --start 2024-01-01 --end 2024-12-31
  backtest-cli fetch --symbols AAPL,MSFT --start 2020-01-01 --end 2024-12-31`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format override (text, json)")

	rootCmd.AddCommand(backtestCmd, compareCmd, rankCmd, fetchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger merges the config's log section with env and flag overrides.
func newLogger(cfg config.LogConfig, env config.Env) (*logrus.Logger, error) {
	lc := logging.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	if lc.Level == "" {
		lc.Level = env.LogLevel
	}
	if lc.Format == "" {
		lc.Format = env.LogFormat
	}
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	return logging.New(lc)
}

// benchmarkSymbol maps "none" to no benchmark.
func benchmarkSymbol(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return ""
	}
	return s
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
