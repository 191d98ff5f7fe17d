package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rustyeddy/quarks/backtest"
	"github.com/rustyeddy/quarks/portfolio"
)

var (
	transactionHeader = []string{"date", "type", "symbol", "quantity", "price", "amount", "profit_loss", "reason"}
	priceHeader       = []string{"date", "close"}
)

// WriteTransactionsCSV writes one row per transaction in log order.
func WriteTransactionsCSV(w io.Writer, txs []portfolio.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return err
	}
	for _, t := range txs {
		pl := ""
		if t.PL != nil {
			pl = t.PL.StringFixed(2)
		}
		err := cw.Write([]string{
			t.Time.Format("2006-01-02"),
			string(t.Side),
			t.Symbol,
			strconv.FormatInt(t.Quantity, 10),
			t.Price.StringFixed(4),
			t.Amount().StringFixed(2),
			pl,
			t.Reason,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePriceHistoryCSV writes the closes observed during a run.
func WritePriceHistoryCSV(w io.Writer, points []portfolio.PricePoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(priceHeader); err != nil {
		return err
	}
	for _, p := range points {
		if err := cw.Write([]string{p.Date.Format("2006-01-02"), p.Close.StringFixed(4)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes <run>_transactions.csv and <run>_prices.csv into dir
// and returns their paths.
func ExportCSV(dir string, r *backtest.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	base := r.RunID
	if base == "" {
		base = fmt.Sprintf("%s_%s", r.Strategy, r.Symbol)
	}

	txPath := filepath.Join(dir, base+"_transactions.csv")
	if err := writeFile(txPath, func(w io.Writer) error { return WriteTransactionsCSV(w, r.Transactions) }); err != nil {
		return nil, err
	}
	pricePath := filepath.Join(dir, base+"_prices.csv")
	if err := writeFile(pricePath, func(w io.Writer) error { return WritePriceHistoryCSV(w, r.PriceHistory) }); err != nil {
		return nil, err
	}
	return []string{txPath, pricePath}, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
