package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"multiasset-backtest/internal/backtest"
)

const (
	summarySheet = "Summary"
	equitySheet  = "Equity"
	fillsSheet   = "Fills"
)

type workbookStyles struct {
	header   int
	currency int
	percent  int
	number   int
}

// WriteWorkbook exports a run to an .xlsx file with Summary, Equity and
// Fills sheets.
func WriteWorkbook(path string, res *backtest.Result) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(equitySheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(fillsSheet); err != nil {
		return err
	}

	styles, err := newWorkbookStyles(fx)
	if err != nil {
		return err
	}
	if err := writeSummarySheet(fx, res, styles); err != nil {
		return err
	}
	if err := writeEquitySheet(fx, res, styles); err != nil {
		return err
	}
	if err := writeFillsSheet(fx, res, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func newWorkbookStyles(fx *excelize.File) (workbookStyles, error) {
	var s workbookStyles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}
	s.currency, err = fx.NewStyle(&excelize.Style{NumFmt: 4, Border: border}) // #,##0.00
	if err != nil {
		return s, err
	}
	s.percent, err = fx.NewStyle(&excelize.Style{NumFmt: 10, Border: border}) // 0.00%
	if err != nil {
		return s, err
	}
	s.number, err = fx.NewStyle(&excelize.Style{NumFmt: 2, Border: border}) // 0.00
	return s, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

func setCell(fx *excelize.File, sheet string, col, row int, v any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, cell, v); err != nil {
		return err
	}
	if style != 0 {
		return fx.SetCellStyle(sheet, cell, cell, style)
	}
	return nil
}

func writeSummarySheet(fx *excelize.File, res *backtest.Result, st workbookStyles) error {
	if err := writeHeader(fx, summarySheet, []string{"Metric", "Value"}, st.header); err != nil {
		return err
	}
	rows := []struct {
		label string
		value any
		style int
	}{
		{"Strategy", res.Strategy, 0},
		{"Instruments", strings.Join(res.Symbols, ", "), 0},
		{"Bars", res.Summary.Bars, 0},
		{"Trade count", res.Trades, 0},
		{"Initial capital", res.Summary.InitialCapital, st.currency},
		{"Final value", res.FinalValue, st.currency},
		{"Alpha", res.Metrics.Alpha, st.number},
		{"Delta", res.Metrics.Beta, st.number},
		{"Sharpe ratio", res.Metrics.Sharpe, st.number},
		{"Win rate", res.Metrics.WinRate, st.percent},
		{"Total return", res.Summary.TotalReturn, st.percent},
		{"Benchmark return", res.Summary.BenchmarkReturn, st.percent},
		{"Max drawdown", res.Summary.MaxDrawdown, st.percent},
		{"Exposure", res.Summary.Exposure, st.percent},
	}
	for i, r := range rows {
		if err := setCell(fx, summarySheet, 1, i+2, r.label, 0); err != nil {
			return err
		}
		if err := setCell(fx, summarySheet, 2, i+2, r.value, r.style); err != nil {
			return err
		}
	}
	fx.SetColWidth(summarySheet, "A", "A", 20)
	fx.SetColWidth(summarySheet, "B", "B", 24)
	return nil
}

func writeEquitySheet(fx *excelize.File, res *backtest.Result, st workbookStyles) error {
	headers := []string{"Bar", "Timestamp", "Buys", "Sells", "Allocation", "Cash", "Holdings", "Portfolio", "Benchmark", "Trades"}
	if err := writeHeader(fx, equitySheet, headers, st.header); err != nil {
		return err
	}
	for i, r := range res.Ledger {
		row := i + 2
		vals := []struct {
			v     any
			style int
		}{
			{r.Index, 0},
			{r.Timestamp.UTC().Format("2006-01-02 15:04:05"), 0},
			{strings.Join(r.Buys, " "), 0},
			{strings.Join(r.Sells, " "), 0},
			{r.Allocation, st.currency},
			{r.Cash, st.currency},
			{r.HoldingsValue, st.currency},
			{r.PortfolioValue, st.currency},
			{r.Benchmark, st.currency},
			{r.Trades, 0},
		}
		for c, v := range vals {
			if err := setCell(fx, equitySheet, c+1, row, v.v, v.style); err != nil {
				return err
			}
		}
	}
	fx.SetColWidth(equitySheet, "B", "B", 20)
	fx.SetColWidth(equitySheet, "E", "I", 14)
	return nil
}

func writeFillsSheet(fx *excelize.File, res *backtest.Result, st workbookStyles) error {
	headers := []string{"Bar", "Timestamp", "Symbol", "Side", "Price", "Shares", "Amount"}
	if err := writeHeader(fx, fillsSheet, headers, st.header); err != nil {
		return err
	}
	for i, f := range res.Fills {
		row := i + 2
		vals := []struct {
			v     any
			style int
		}{
			{f.Index, 0},
			{f.Timestamp.UTC().Format("2006-01-02 15:04:05"), 0},
			{f.Symbol, 0},
			{string(f.Side), 0},
			{f.Price, st.currency},
			{f.Shares, st.number},
			{f.Amount, st.currency},
		}
		for c, v := range vals {
			if err := setCell(fx, fillsSheet, c+1, row, v.v, v.style); err != nil {
				return err
			}
		}
	}
	fx.SetColWidth(fillsSheet, "B", "B", 20)
	return nil
}
