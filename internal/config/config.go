package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/data"
	"multiasset-backtest/internal/metrics"
	"multiasset-backtest/internal/strategy"
)

const (
	DefaultInitialCapital = 100.0
	DefaultInterval       = "1d"
	DefaultBenchmark      = "SPY"
	DefaultProvider       = "csv"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load strategy parameters from a preset (e.g. configs/presets/*.yaml).
	// If both StrategyFile and Strategy are provided, Strategy overrides StrategyFile.
	StrategyFile string         `yaml:"strategy_file"`
	Data         DataConfig     `yaml:"data"`
	Backtest     BacktestConfig `yaml:"backtest"`
	Strategy     StrategyConfig `yaml:"strategy"`
	Log          LogConfig      `yaml:"log"`
}

type DataConfig struct {
	Provider     string   `yaml:"provider"`
	Symbols      []string `yaml:"symbols"`
	Benchmark    string   `yaml:"benchmark"`
	Start        string   `yaml:"start"`
	End          string   `yaml:"end"`
	Interval     string   `yaml:"interval"`
	Feed         string   `yaml:"feed"`
	CSVDir       string   `yaml:"csv_dir"`
	StoreDir     string   `yaml:"store_dir"`
	UniverseFile string   `yaml:"universe_file"`
	Cache        bool     `yaml:"cache"`
}

type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	// Pointer so an explicit 0 is kept.
	RiskFreeRate *float64 `yaml:"risk_free_rate"`
	Workers      int      `yaml:"workers"`
}

type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables size-rotated file output instead of stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.StrategyFile != "" {
		presetPath := c.StrategyFile
		if !filepath.IsAbs(presetPath) {
			// relative to the config file first, then cwd
			cand := filepath.Join(filepath.Dir(path), presetPath)
			if _, err := os.Stat(cand); err == nil {
				presetPath = cand
			}
		}
		preset, err := LoadPreset(presetPath)
		if err != nil {
			return nil, err
		}
		c.Strategy = MergeStrategy(preset.Strategy, c.Strategy)
	}
	return &c, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Data.Provider == "" {
		c.Data.Provider = DefaultProvider
	}
	if c.Data.Interval == "" {
		c.Data.Interval = DefaultInterval
	}
	if c.Data.Benchmark == "" {
		c.Data.Benchmark = DefaultBenchmark
	}
	if c.Backtest.InitialCapital == 0 {
		c.Backtest.InitialCapital = DefaultInitialCapital
	}
	if c.Backtest.RiskFreeRate == nil {
		rf := metrics.DefaultRiskFreeRate
		c.Backtest.RiskFreeRate = &rf
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}
	if _, err := strategy.FromConfig(c.Strategy.Name, c.Strategy.Params); err != nil {
		return fmt.Errorf("strategy config invalid: %w", err)
	}
	if len(c.Data.Symbols) == 0 {
		return errors.New("data.symbols must list at least one symbol")
	}
	if !(c.Backtest.InitialCapital > 0) {
		return fmt.Errorf("backtest.initial_capital must be > 0, got %v", c.Backtest.InitialCapital)
	}
	if c.Backtest.Workers < 0 {
		return errors.New("backtest.workers must be >= 0")
	}
	if _, _, err := c.Range(); err != nil {
		return err
	}
	if _, err := data.ParseInterval(c.Data.Interval); err != nil {
		return err
	}
	return nil
}

// Range parses data.start and data.end. A date-only end is inclusive, so
// "2024-12-31" covers that whole day.
func (c *Config) Range() (time.Time, time.Time, error) {
	start, _, err := ParseDate(c.Data.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("data.start: %w", err)
	}
	end, dateOnly, err := ParseDate(c.Data.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("data.end: %w", err)
	}
	if dateOnly {
		end = end.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.New("data.start must be before data.end")
	}
	return start, end, nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339. The bool reports a date-only value.
func ParseDate(s string) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, errors.New("date is required")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", s)
	}
	return t.UTC(), false, nil
}

// Query builds the data query for the configured instruments.
func (c *Config) Query() (data.Query, error) {
	start, end, err := c.Range()
	if err != nil {
		return data.Query{}, err
	}
	return data.Query{
		Symbols:  c.Data.Symbols,
		Start:    start,
		End:      end,
		Interval: c.Data.Interval,
	}, nil
}

func (c *Config) BacktestOptions() backtest.Options {
	opts := backtest.DefaultOptions()
	if c.Backtest.InitialCapital > 0 {
		opts.InitialCapital = c.Backtest.InitialCapital
	}
	if c.Backtest.RiskFreeRate != nil {
		opts.RiskFreeRate = *c.Backtest.RiskFreeRate
	}
	opts.Workers = c.Backtest.Workers
	return opts
}

// ProviderOptions combines the data section with credentials from env.
func (c *Config) ProviderOptions(env Env) data.Options {
	return data.Options{
		CSVDir:   c.Data.CSVDir,
		StoreDir: c.Data.StoreDir,
		Cache:    c.Data.Cache,
		Alpaca: data.AlpacaConfig{
			APIKey:    env.AlpacaAPIKey,
			APISecret: env.AlpacaAPISecret,
			BaseURL:   env.AlpacaDataURL,
			Feed:      c.Data.Feed,
		},
	}
}

// Preset is a named strategy configuration stored on its own.
type Preset struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Strategy    StrategyConfig `yaml:"strategy"`
}

func LoadPreset(path string) (*Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Preset
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &p, nil
}

// MergeStrategy overlays override onto base. Params are merged key by key.
func MergeStrategy(base, override StrategyConfig) StrategyConfig {
	out := StrategyConfig{Name: base.Name}
	if override.Name != "" {
		out.Name = override.Name
	}
	if len(base.Params) > 0 || len(override.Params) > 0 {
		out.Params = make(map[string]any, len(base.Params)+len(override.Params))
		for k, v := range base.Params {
			out.Params[k] = v
		}
		for k, v := range override.Params {
			out.Params[k] = v
		}
	}
	return out
}
