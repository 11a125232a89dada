package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"multiasset-backtest/internal/analysis"
	"multiasset-backtest/internal/backtest"
	"multiasset-backtest/internal/metrics"
	"multiasset-backtest/internal/model"
)

func sampleResult() *backtest.Result {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &backtest.Result{
		Strategy:   "mean_reversion",
		Symbols:    []string{"AAA", "BBB"},
		Trades:     3,
		FinalValue: 112.5,
		Metrics:    metrics.Result{Alpha: 0.25, Beta: 0.4, Sharpe: 1.5, WinRate: 0.5},
		Summary: backtest.Summary{
			Bars: 2, Start: ts, End: ts.AddDate(0, 0, 1),
			InitialCapital: 100, TotalReturn: 0.125, BenchmarkReturn: 0.05, MaxDrawdown: 0.02, Exposure: 1,
		},
		Ledger: []backtest.LedgerRow{
			{Index: 0, Timestamp: ts, Buys: []string{"AAA", "BBB"}, Allocation: 50, HoldingsValue: 100, PortfolioValue: 100, Trades: 2},
			{Index: 1, Timestamp: ts.AddDate(0, 0, 1), Sells: []string{"AAA"}, Cash: 60, HoldingsValue: 52.5, PortfolioValue: 112.5, Trades: 3},
		},
		Fills: []backtest.TradeRecord{
			{Index: 0, Timestamp: ts, Fill: backtest.Fill{Symbol: "AAA", Side: model.ActionBuy, Price: 10, Shares: 5, Amount: 50}},
			{Index: 0, Timestamp: ts, Fill: backtest.Fill{Symbol: "BBB", Side: model.ActionBuy, Price: 20, Shares: 2.5, Amount: 50}},
			{Index: 1, Timestamp: ts.AddDate(0, 0, 1), Fill: backtest.Fill{Symbol: "AAA", Side: model.ActionSell, Price: 12, Shares: 5, Amount: 60}},
		},
		Positions: map[string]backtest.Holding{"BBB": {Shares: 2.5, EntryPrice: 20}},
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, "", sampleResult())
	out := buf.String()

	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "mean_reversion")
	assert.Contains(t, out, "Trade count")
	assert.Contains(t, out, "112.50")
	assert.Contains(t, out, "0.2500")
	assert.Contains(t, out, "1.5000")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "Open BBB")
	assert.Contains(t, out, "2024-03-01")
}

func TestConsoleEmptyRun(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, "EMPTY", &backtest.Result{Strategy: "buy_and_hold", FinalValue: 100})
	assert.Contains(t, buf.String(), "EMPTY")
	assert.NotContains(t, buf.String(), "Period")
}

func TestCompareTable(t *testing.T) {
	a := sampleResult()
	b := sampleResult()
	b.Strategy = "sma_cross"
	var buf bytes.Buffer
	CompareTable(&buf, []string{"tight"}, []*backtest.Result{a, b})
	out := buf.String()
	assert.Contains(t, out, "tight")
	assert.Contains(t, out, "sma_cross")
	assert.Contains(t, out, "12.50%")
}

func TestRankTable(t *testing.T) {
	var buf bytes.Buffer
	RankTable(&buf, []analysis.RankedPotential{
		{Rank: 1, TradingPotential: analysis.TradingPotential{Symbol: "UP", Count: 3, HindsightReturn: 3}},
	})
	assert.Contains(t, buf.String(), "UP")
	assert.Contains(t, buf.String(), "300.00%")
}

func TestWriteWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.xlsx")
	require.NoError(t, WriteWorkbook(path, sampleResult()))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{"Summary", "Equity", "Fills"}, fx.GetSheetList())

	v, err := fx.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "mean_reversion", v)

	rows, err := fx.GetRows("Equity")
	require.NoError(t, err)
	assert.Len(t, rows, 3, "header plus one row per bar")
	assert.Equal(t, "AAA BBB", rows[1][2])

	rows, err = fx.GetRows("Fills")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "SELL", rows[3][3])
}
