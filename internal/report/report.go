// Package report prints human-readable summaries for the command line.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/quarks/advice"
	"github.com/rustyeddy/quarks/journal"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/shopspring/decimal"
)

const rule = "--------------------------------------------------"

func PrintBacktestRun(w io.Writer, r journal.BacktestRun) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	if !r.Created.IsZero() {
		fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format("2006-01-02"))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format("2006-01-02"))
	fmt.Fprintf(w, "Evaluated:     %d days (%d without data)\n", r.Evaluations, r.SkippedDays)

	if len(r.Params) > 0 && string(r.Params) != "null" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Strategy Configuration")
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s\n", r.Params)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Buys:          %d\n", r.Buys)
	fmt.Fprintf(w, "Sells:         %d\n", r.Sells)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate)
	if r.Rejections > 0 {
		fmt.Fprintf(w, "Rejected:      %d\n", r.Rejections)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Start Balance: %.2f\n", r.StartBalance)
	fmt.Fprintf(w, "End Balance:   %.2f\n", r.EndBalance)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPL)
	fmt.Fprintf(w, "Realized P/L:  %.2f\n", r.RealizedPL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct)

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, rule)
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

// PrintTransactions lists transactions one per line.
func PrintTransactions(w io.Writer, txs []portfolio.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	fmt.Fprintf(w, "%-10s  %-4s  %-6s  %8s  %10s  %10s  %s\n", "DATE", "SIDE", "SYMBOL", "QTY", "PRICE", "P/L", "REASON")
	for _, t := range txs {
		pl := ""
		if t.PL != nil {
			pl = t.PL.StringFixed(2)
		}
		fmt.Fprintf(w, "%-10s  %-4s  %-6s  %8d  %10s  %10s  %s\n",
			t.Time.Format("2006-01-02"), t.Side, t.Symbol, t.Quantity, t.Price.StringFixed(2), pl, t.Reason)
	}
}

// PrintLedger shows cash and open holdings. Holdings are valued with
// price when it knows the symbol and at cost otherwise.
func PrintLedger(w io.Writer, l *portfolio.Ledger, price func(string) (decimal.Decimal, bool)) {
	if price == nil {
		price = func(string) (decimal.Decimal, bool) { return decimal.Zero, false }
	}
	fmt.Fprintf(w, "Portfolio:     %s\n", l.Name)
	fmt.Fprintf(w, "Cash:          %s\n", l.Cash().StringFixed(2))
	if r, ok := l.Return(); ok {
		fmt.Fprintf(w, "Return:        %s%%\n", r.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}

	holdings := l.Holdings()
	if len(holdings) == 0 {
		fmt.Fprintln(w, "Holdings:      none")
		return
	}
	syms := make([]string, 0, len(holdings))
	for s := range holdings {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-6s  %8s  %10s  %12s\n", "SYMBOL", "QTY", "AVG", "VALUE")
	for _, s := range syms {
		h := holdings[s]
		px, ok := price(s)
		if !ok {
			px = h.AvgPrice
		}
		mark := ""
		if !ok {
			mark = " (cost)"
		}
		fmt.Fprintf(w, "%-6s  %8d  %10s  %12s%s\n", s, h.Quantity, h.AvgPrice.StringFixed(2),
			px.Mul(decimal.NewFromInt(h.Quantity)).StringFixed(2), mark)
	}
	fmt.Fprintf(w, "\nTotal value:   %s\n", l.Value(price).StringFixed(2))
}

func PrintAdvice(w io.Writer, s advice.Sheet) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, " Advice: %s (%s)\n", s.Symbol, s.AsOf.Format("2006-01-02"))
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Current Price: %.2f\n", s.CurrentPrice)
	fmt.Fprintf(w, "1-Year Return: %.2f%%\n", s.OneYearReturn)

	fmt.Fprintln(w)
	for _, r := range s.Recommendations {
		fmt.Fprintf(w, "%-14s %-5s %s\n", r.Strategy, r.Signal, r.Reason)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-14s %-5s %s\n", "FINAL", strings.ToUpper(s.Final.Signal.String()), s.Final.Reason)
}

// PrintWatchlist shows each followed symbol against the price it was added
// at. Symbols price does not know are listed without a change.
func PrintWatchlist(w io.Writer, wl journal.Watchlist, price func(string) (float64, bool)) {
	if price == nil {
		price = func(string) (float64, bool) { return 0, false }
	}
	fmt.Fprintf(w, "Watchlist:     %s (%d)\n", wl.Name, wl.ID)
	if len(wl.Items) == 0 {
		fmt.Fprintln(w, "Symbols:       none")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-6s  %-10s  %10s  %10s  %10s  %8s  %s\n",
		"SYMBOL", "ADDED", "INITIAL", "CURRENT", "CHANGE", "CHANGE%", "NOTES")
	var total, basis float64
	for _, it := range wl.Items {
		px, ok := price(it.Symbol)
		if !ok {
			fmt.Fprintf(w, "%-6s  %-10s  %10.2f  %10s  %10s  %8s  %s\n",
				it.Symbol, it.AddedOn.Format("2006-01-02"), it.AddedPrice, "-", "-", "-", it.Notes)
			continue
		}
		diff, pct := it.Change(px)
		total += diff
		basis += it.AddedPrice
		fmt.Fprintf(w, "%-6s  %-10s  %10.2f  %10.2f  %+10.2f  %+7.2f%%  %s\n",
			it.Symbol, it.AddedOn.Format("2006-01-02"), it.AddedPrice, px, diff, 100*pct, it.Notes)
	}

	fmt.Fprintln(w, rule)
	if basis > 0 {
		fmt.Fprintf(w, "Total change:  %+.2f (%+.2f%%)\n", total, 100*total/basis)
	} else {
		fmt.Fprintf(w, "Total change:  %+.2f\n", total)
	}
}
