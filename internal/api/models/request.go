package models

// BacktestRequest represents the request body for running a backtest
type BacktestRequest struct {
	DataSource DataSourceConfig `json:"data_source" binding:"required"`
	Config     BacktestConfig   `json:"config" binding:"required"`
	Options    BacktestOptions  `json:"options,omitempty"`
}

// DataSourceConfig defines how to fetch market data
type DataSourceConfig struct {
	Provider  string   `json:"provider" binding:"required"` // "csv", "parquet" or "alpaca"
	Symbols   []string `json:"symbols" binding:"required,min=1"`
	Benchmark string   `json:"benchmark,omitempty"`           // default: SPY
	StartDate string   `json:"start_date" binding:"required"` // YYYY-MM-DD or RFC3339
	EndDate   string   `json:"end_date" binding:"required"`   // inclusive when YYYY-MM-DD
	Interval  string   `json:"interval,omitempty"`            // default: 1d
	Feed      string   `json:"feed,omitempty"`                // alpaca only

	// Optional Alpaca credentials; the server environment is used when empty.
	APIKey    string `json:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty"`
}

// BacktestConfig contains strategy and capital configuration
type BacktestConfig struct {
	// StrategyFile names a preset (e.g. "mean_reversion_tight"); Strategy overrides it.
	StrategyFile   string         `json:"strategy_file,omitempty"`
	Strategy       StrategyConfig `json:"strategy"`
	InitialCapital float64        `json:"initial_capital,omitempty"` // default: 100
	RiskFreeRate   *float64       `json:"risk_free_rate,omitempty"`  // default: 0.02
}

// StrategyConfig defines strategy and its parameters
type StrategyConfig struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// BacktestOptions contains optional backtest parameters
type BacktestOptions struct {
	LimitBars     int  `json:"limit_bars,omitempty"`     // 0 = all
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
	IncludeFills  bool `json:"include_fills,omitempty"`  // default: false
}

// CompareBacktestRequest runs several configurations over the same data
type CompareBacktestRequest struct {
	DataSource DataSourceConfig    `json:"data_source" binding:"required"`
	BaseConfig BacktestConfig      `json:"base_config"`
	Variations []BacktestVariation `json:"variations" binding:"required,min=1"`
	Options    BacktestOptions     `json:"options,omitempty"`
}

// BacktestVariation defines a variation to test
type BacktestVariation struct {
	Name   string         `json:"name" binding:"required"`
	Config BacktestConfig `json:"config"`
}

// RankRequest represents a request to rank instruments
type RankRequest struct {
	Provider  string `form:"provider"`
	Symbols   string `form:"symbols"` // comma-separated; default: the local universe
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	Interval  string `form:"interval"`
	Limit     int    `form:"limit"` // default: 10
}
