package backtest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func WriteLedgerCSV(path string, ledger []LedgerRow) error {
	return writeCSVFile(path, func(w io.Writer) error { return EncodeLedgerCSV(w, ledger) })
}

func WriteFillsCSV(path string, fills []TradeRecord) error {
	return writeCSVFile(path, func(w io.Writer) error { return EncodeFillsCSV(w, fills) })
}

func EncodeLedgerCSV(out io.Writer, ledger []LedgerRow) error {
	w := csv.NewWriter(out)

	header := []string{
		"index",
		"timestamp",
		"buys",
		"sells",
		"allocation",
		"cash",
		"holdings_value",
		"portfolio_value",
		"benchmark",
		"trades",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.Timestamp),
			strings.Join(r.Buys, ";"),
			strings.Join(r.Sells, ";"),
			fmtFloat(r.Allocation),
			fmtFloat(r.Cash),
			fmtFloat(r.HoldingsValue),
			fmtFloat(r.PortfolioValue),
			fmtFloat(r.Benchmark),
			strconv.Itoa(r.Trades),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func EncodeFillsCSV(out io.Writer, fills []TradeRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"index", "timestamp", "symbol", "side", "price", "shares", "amount"}); err != nil {
		return err
	}
	for _, f := range fills {
		row := []string{
			strconv.Itoa(f.Index),
			fmtTime(f.Timestamp),
			f.Symbol,
			string(f.Side),
			fmtFloat(f.Price),
			fmtFloat(f.Shares),
			fmtFloat(f.Amount),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeCSVFile(path string, encode func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
