package models

import "time"

// BacktestResponse represents the response from a backtest run
type BacktestResponse struct {
	ID        string                 `json:"id,omitempty"`
	Status    string                 `json:"status"`
	Summary   BacktestSummary        `json:"summary"`
	Positions map[string]Position    `json:"positions"`
	Ledger    []LedgerRow            `json:"ledger,omitempty"`
	Fills     []Fill                 `json:"fills,omitempty"`
	Warnings  []string               `json:"warnings,omitempty"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// BacktestSummary contains the headline numbers of a run
type BacktestSummary struct {
	Strategy       string     `json:"strategy"`
	Symbols        []string   `json:"symbols"`
	Benchmark      string     `json:"benchmark,omitempty"`
	TotalBars      int        `json:"total_bars"`
	BacktestWindow TimeWindow `json:"backtest_window"`

	TradeCount int     `json:"trade_count"`
	FinalValue float64 `json:"final_value"`
	Alpha      float64 `json:"alpha"`
	// Beta is the correlation of portfolio and benchmark returns.
	Beta    float64 `json:"beta"`
	Sharpe  float64 `json:"sharpe"`
	WinRate float64 `json:"win_rate"`

	InitialCapital  float64 `json:"initial_capital"`
	TotalReturn     float64 `json:"total_return"`
	BenchmarkReturn float64 `json:"benchmark_return"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	Exposure        float64 `json:"exposure"`
}

// TimeWindow represents a time range
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Position is an open holding at the end of the run
type Position struct {
	Shares     float64 `json:"shares"`
	EntryPrice float64 `json:"entry_price"`
}

// LedgerRow represents one bar in the backtest ledger
type LedgerRow struct {
	Index          int       `json:"index"`
	Timestamp      time.Time `json:"timestamp"`
	Buys           []string  `json:"buys,omitempty"`
	Sells          []string  `json:"sells,omitempty"`
	Allocation     float64   `json:"allocation"`
	Cash           float64   `json:"cash"`
	HoldingsValue  float64   `json:"holdings_value"`
	PortfolioValue float64   `json:"portfolio_value"`
	Benchmark      float64   `json:"benchmark"`
	Trades         int       `json:"trades"`
}

// Fill represents one executed trade
type Fill struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"` // "BUY" or "SELL"
	Price     float64   `json:"price"`
	Shares    float64   `json:"shares"`
	Amount    float64   `json:"amount"`
}

// LedgerResponse is returned by GET /api/v1/backtest/:id/ledger
type LedgerResponse struct {
	ID     string      `json:"id"`
	Ledger []LedgerRow `json:"ledger"`
	Fills  []Fill      `json:"fills"`
}

// RunInfo is one entry of GET /api/v1/backtest/runs
type RunInfo struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Summary   BacktestSummary `json:"summary"`
}

// CompareBacktestResponse represents the response from a comparison
type CompareBacktestResponse struct {
	Comparison []ComparisonResult `json:"comparison"`
}

// ComparisonResult contains results for one variation
type ComparisonResult struct {
	Name    string           `json:"name"`
	ID      string           `json:"id,omitempty"`
	Summary *BacktestSummary `json:"summary,omitempty"`
	Error   *ErrorDetail     `json:"error,omitempty"`
}

// RankResponse represents the response from ranking instruments
type RankResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// Ranking represents one ranked instrument
type Ranking struct {
	Rank                 int     `json:"rank"`
	Symbol               string  `json:"symbol"`
	Count                int     `json:"count"`
	BuyAndHoldReturn     float64 `json:"buy_and_hold_return"`
	HindsightReturn      float64 `json:"hindsight_return"`
	HindsightTrades      int     `json:"hindsight_trades"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
	MaxDrawdown          float64 `json:"max_drawdown"`
	SpreadP95P05         float64 `json:"spread_p95_p05"`
}

// PresetInfo represents a stored strategy preset
type PresetInfo struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	File        string                 `json:"file"`
	Strategy    string                 `json:"strategy"`
	Params      map[string]interface{} `json:"params,omitempty"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
	Lookahead   bool            `json:"lookahead,omitempty"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // "float", "int", "string"
	Description string      `json:"description"`
	Default     interface{} `json:"default,omitempty"`
}

// ProviderInfo describes a market data provider
type ProviderInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Configured  bool   `json:"configured"`
}

// SymbolInfo represents an instrument available locally
type SymbolInfo struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Exchange string `json:"exchange,omitempty"`
	Provider string `json:"provider,omitempty"`
	Interval string `json:"interval,omitempty"`
	FirstBar string `json:"first_bar,omitempty"`
	LastBar  string `json:"last_bar,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
