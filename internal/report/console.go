package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"multiasset-backtest/internal/analysis"
	"multiasset-backtest/internal/backtest"
)

// Console renders the headline numbers of a run.
func Console(w io.Writer, title string, res *backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if title == "" {
		title = "BACKTEST RESULTS"
	}
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Strategy", res.Strategy},
		{"Instruments", strings.Join(res.Symbols, ", ")},
		{"Bars", res.Summary.Bars},
	})
	if res.Summary.Bars > 0 {
		t.AppendRow(table.Row{"Period", fmt.Sprintf("%s → %s",
			res.Summary.Start.Format("2006-01-02"), res.Summary.End.Format("2006-01-02"))})
	}
	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"Trade count", res.Trades},
		{"Final value", fmt.Sprintf("%.2f", res.FinalValue)},
		{"Alpha", fmt.Sprintf("%.4f", res.Metrics.Alpha)},
		{"Delta", fmt.Sprintf("%.4f", res.Metrics.Beta)},
		{"Sharpe ratio", fmt.Sprintf("%.4f", res.Metrics.Sharpe)},
		{"Win rate", fmt.Sprintf("%.2f%%", res.Metrics.WinRate*100)},
	})
	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"Initial capital", fmt.Sprintf("%.2f", res.Summary.InitialCapital)},
		{"Total return", pct(res.Summary.TotalReturn)},
		{"Benchmark return", pct(res.Summary.BenchmarkReturn)},
		{"Max drawdown", pct(res.Summary.MaxDrawdown)},
		{"Exposure", pct(res.Summary.Exposure)},
	})

	if len(res.Positions) > 0 {
		t.AppendSeparator()
		syms := make([]string, 0, len(res.Positions))
		for s := range res.Positions {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		for _, s := range syms {
			h := res.Positions[s]
			t.AppendRow(table.Row{"Open " + s, fmt.Sprintf("%.4f sh @ %.2f", h.Shares, h.EntryPrice)})
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, Align: text.AlignRight},
	})
	t.Render()
}

// CompareTable renders one row per run, in the given order.
func CompareTable(w io.Writer, labels []string, results []*backtest.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("STRATEGY COMPARISON")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Trades", "Final value", "Return", "Alpha", "Delta", "Sharpe", "Win rate", "Max DD"})
	for i, res := range results {
		label := res.Strategy
		if i < len(labels) && labels[i] != "" {
			label = labels[i]
		}
		t.AppendRow(table.Row{
			label,
			res.Trades,
			fmt.Sprintf("%.2f", res.FinalValue),
			pct(res.Summary.TotalReturn),
			fmt.Sprintf("%.4f", res.Metrics.Alpha),
			fmt.Sprintf("%.4f", res.Metrics.Beta),
			fmt.Sprintf("%.4f", res.Metrics.Sharpe),
			pct(res.Metrics.WinRate),
			pct(res.Summary.MaxDrawdown),
		})
	}
	t.Render()
}

// RankTable renders a hindsight ranking.
func RankTable(w io.Writer, ranked []analysis.RankedPotential) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("HINDSIGHT RANKING")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Symbol", "Bars", "Buy & hold", "Hindsight", "Trades", "Vol (ann.)", "Max DD", "P05", "P95"})
	for _, r := range ranked {
		t.AppendRow(table.Row{
			r.Rank,
			r.Symbol,
			r.Count,
			pct(r.BuyAndHoldReturn),
			pct(r.HindsightReturn),
			r.HindsightTrades,
			pct(r.AnnualizedVolatility),
			pct(r.MaxDrawdown),
			pct(r.P05Return),
			pct(r.P95Return),
		})
	}
	t.Render()
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
