package backtest

import (
	"time"

	"multiasset-backtest/internal/metrics"
)

// LedgerRow is one row of per-bar output.
// This is the primary artifact for "what happened" in a backtest.
type LedgerRow struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`

	Buys  []string `json:"buys,omitempty"`
	Sells []string `json:"sells,omitempty"`

	// Allocation is the per-instrument cash slice used for this bar's buys.
	Allocation float64 `json:"allocation"`

	Cash           float64 `json:"cash"`
	HoldingsValue  float64 `json:"holdings_value"`
	PortfolioValue float64 `json:"portfolio_value"`
	Benchmark      float64 `json:"benchmark"`

	// Trades is the cumulative trade count after this bar.
	Trades int `json:"trades"`
}

// TradeRecord is a Fill stamped with the bar it happened on.
type TradeRecord struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Fill
}

// Summary is derived from the value series after the run.
type Summary struct {
	Bars            int       `json:"bars"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	InitialCapital  float64   `json:"initial_capital"`
	TotalReturn     float64   `json:"total_return"`
	BenchmarkReturn float64   `json:"benchmark_return"`
	MaxDrawdown     float64   `json:"max_drawdown"`
	// Exposure is the share of bars that ended with at least one open position.
	Exposure float64 `json:"exposure"`
}

type Result struct {
	Strategy   string         `json:"strategy"`
	Symbols    []string       `json:"symbols"`
	Trades     int            `json:"trades"`
	FinalValue float64        `json:"final_value"`
	Metrics    metrics.Result `json:"metrics"`
	Summary    Summary        `json:"summary"`
	Ledger     []LedgerRow    `json:"ledger,omitempty"`
	Fills      []TradeRecord  `json:"fills,omitempty"`
	// Positions still open at the end; nothing is liquidated.
	Positions map[string]Holding `json:"positions"`
}

// PortfolioValues returns the per-bar portfolio value series.
func (r *Result) PortfolioValues() []float64 {
	out := make([]float64, len(r.Ledger))
	for i, row := range r.Ledger {
		out[i] = row.PortfolioValue
	}
	return out
}
