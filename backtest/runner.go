// Package backtest replays a strategy over a range of calendar days against
// a simulated portfolio.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/pkg/id"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/rustyeddy/quarks/strategies"
	"github.com/shopspring/decimal"
)

// ErrInvalidRequest is returned before any day is simulated when the
// request cannot be run.
var ErrInvalidRequest = errors.New("backtest: invalid request")

// Driver runs backtests against a price provider. Quoter prices live
// intents and may be nil, in which case live intents are rejected.
type Driver struct {
	Provider market.Provider
	Quoter   market.Quoter
	Log      *slog.Logger
}

// Request describes one run. When Ledger is nil a fresh ledger named Name
// is seeded with InitialCash.
type Request struct {
	Name        string
	Strategy    string
	Symbol      string
	Params      strategies.Params
	Start, End  time.Time
	InitialCash decimal.Decimal
	Ledger      *portfolio.Ledger
}

func (r Request) validate() error {
	switch {
	case strings.TrimSpace(r.Symbol) == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	case r.Start.IsZero() || r.End.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	case market.Day(r.Start).After(market.Day(r.End)):
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRequest,
			r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly))
	case r.Ledger == nil && !r.InitialCash.IsPositive():
		return fmt.Errorf("%w: initial cash must be positive", ErrInvalidRequest)
	}
	return nil
}

// Run simulates req one calendar day at a time. Weekends are skipped. A day
// without a bar is logged and skipped. A cancelled context stops the run
// between days; the partial result is returned with the context's error.
func (d *Driver) Run(ctx context.Context, req Request) (*Result, error) {
	if d.Provider == nil {
		return nil, fmt.Errorf("%w: no price provider", ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	strat, err := strategies.New(req.Strategy, req.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	ledger := req.Ledger
	if ledger == nil {
		name := req.Name
		if name == "" {
			name = fmt.Sprintf("%s-%s", strat.Name(), symbol)
		}
		ledger = portfolio.New(name, req.InitialCash)
	}
	// The history of a run holds only the symbol under test.
	ledger.Prices().Reset()

	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	res := &Result{
		RunID:       id.New(),
		Strategy:    strat.Name(),
		Symbol:      symbol,
		Start:       market.Day(req.Start),
		End:         market.Day(req.End),
		InitialCash: ledger.Cash(),
		Ledger:      ledger,
	}
	log = log.With("run", res.RunID, "strategy", res.Strategy, "symbol", symbol)

	b := &book{Ledger: ledger, quoter: d.Quoter, log: log}
	span := market.CalendarSpan(strat.Warmup())

	log.Info("backtest started",
		"start", res.Start.Format(time.DateOnly),
		"end", res.End.Format(time.DateOnly),
		"cash", res.InitialCash.StringFixed(2))

	cancelled := func(day time.Time, err error) (*Result, error) {
		res.Rejections = b.rejections
		d.finish(context.WithoutCancel(ctx), res)
		log.Warn("backtest cancelled", "date", day.Format(time.DateOnly), "err", err)
		return res, err
	}

	for day := res.Start; !day.After(res.End); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return cancelled(day, err)
		}
		if !market.IsTradingDay(day) {
			continue
		}

		bar, err := d.Provider.Bar(ctx, symbol, day)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cancelled(day, cerr)
			}
			res.SkippedDays++
			log.Info("no price data", "date", day.Format(time.DateOnly), "err", err)
			continue
		}
		ledger.Prices().Set(day, decimal.NewFromFloat(bar.Close))

		bars, err := d.Provider.Range(ctx, symbol, day.AddDate(0, 0, -span), day)
		if err != nil || len(bars) == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cancelled(day, cerr)
			}
			log.Warn("no price window", "date", day.Format(time.DateOnly), "err", err)
			continue
		}

		b.asOf, b.close = day, bar.Close
		res.Evaluations++
		err = strat.Evaluate(ctx, b, strategies.Input{Symbol: symbol, AsOf: day, Bars: bars})
		switch {
		case err == nil:
		case errors.Is(err, strategies.ErrInsufficientHistory):
			log.Debug("evaluation skipped", "date", day.Format(time.DateOnly), "err", err)
		default:
			log.Warn("evaluation failed", "date", day.Format(time.DateOnly), "err", err)
		}
	}

	res.Rejections = b.rejections
	d.finish(ctx, res)
	log.Info("backtest finished",
		"evaluations", res.Evaluations,
		"trades", len(res.Transactions),
		"rejections", res.Rejections,
		"final", res.FinalValue.StringFixed(2),
		"return", res.Return.StringFixed(4))
	return res, nil
}

// finish values the ledger and fills in the result. The symbol under test
// is priced at its last recorded close; anything else at the provider's
// latest close on or before End, falling back to its average price.
func (d *Driver) finish(ctx context.Context, res *Result) {
	ledger := res.Ledger
	price := func(symbol string) (decimal.Decimal, bool) {
		if symbol == res.Symbol {
			if p, ok := ledger.Prices().Last(); ok {
				return p.Close, true
			}
		}
		c, err := market.LatestClose(ctx, d.Provider, symbol, res.End, 14)
		if err != nil {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(c), true
	}

	res.FinalValue = ledger.Value(price)
	res.Return = decimal.Zero
	if res.InitialCash.IsPositive() {
		res.Return = res.FinalValue.Sub(res.InitialCash).Div(res.InitialCash)
	}
	ledger.SetReturn(res.Return)
	res.Transactions = ledger.Transactions()
	res.PriceHistory = ledger.Prices().Points()
}

// RunBacktest runs strategyName over [start, end] with a fresh ledger.
func RunBacktest(ctx context.Context, d *Driver, strategyName, symbol string, start, end time.Time, cash decimal.Decimal) (*Result, error) {
	return d.Run(ctx, Request{
		Strategy:    strategyName,
		Symbol:      symbol,
		Start:       start,
		End:         end,
		InitialCash: cash,
	})
}
