// Package strategies holds the rule-based trading strategies. A strategy is
// stateless: everything it knows about past trades comes from the Book it
// is evaluated against.
package strategies

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientHistory means the window is too short for the
	// strategy's indicators. The evaluation is a no-op.
	ErrInsufficientHistory = errors.New("strategies: insufficient history")

	// ErrInvalidParameters is returned for unknown strategy names and
	// out-of-range parameters.
	ErrInvalidParameters = errors.New("strategies: invalid parameters")
)

// Input is the price window a strategy decides on. Bars are ordered by
// date and end at AsOf.
type Input struct {
	Symbol string
	AsOf   time.Time
	Bars   []market.Bar
}

// Close is the last close in the window.
func (in Input) Close() float64 {
	if len(in.Bars) == 0 {
		return 0
	}
	return in.Bars[len(in.Bars)-1].Close
}

// Intent is a proposed trade that has not been applied yet.
type Intent struct {
	Side     portfolio.Side
	Symbol   string
	Quantity int64
	// Live intents are priced from the current quote rather than from the
	// simulated day's close.
	Live   bool
	Reason string
}

func (i Intent) String() string {
	return fmt.Sprintf("%s %d %s (%s)", i.Side, i.Quantity, i.Symbol, i.Reason)
}

// Book is the view of the account a strategy trades against. Submit
// applies the intent right away, so later reads in the same evaluation see
// the new position. A rejected intent is reported by the Book and returned
// as an error wrapping portfolio.ErrInvariantViolation.
type Book interface {
	Cash() decimal.Decimal
	Holding(symbol string) (portfolio.Holding, bool)
	LastTrade(symbol string, side portfolio.Side) (time.Time, bool)
	Submit(ctx context.Context, in Intent) error
}

// Strategy decides trades for one symbol on one day.
type Strategy interface {
	Name() string
	// Warmup is the number of bars the strategy wants in its window.
	Warmup() int
	Evaluate(ctx context.Context, b Book, in Input) error
}

// submit forwards an intent to the book. Per-intent failures (a rejected
// order, a missing live quote) end that intent only; the book has already
// reported them.
func submit(ctx context.Context, b Book, in Intent) error {
	err := b.Submit(ctx, in)
	if errors.Is(err, portfolio.ErrInvariantViolation) || errors.Is(err, market.ErrNotFound) {
		return nil
	}
	return err
}

func buy(ctx context.Context, b Book, symbol string, qty int64, reason string) error {
	return submit(ctx, b, Intent{Side: portfolio.Buy, Symbol: symbol, Quantity: qty, Reason: reason})
}

func sell(ctx context.Context, b Book, symbol string, qty int64, reason string) error {
	return submit(ctx, b, Intent{Side: portfolio.Sell, Symbol: symbol, Quantity: qty, Reason: reason})
}

// cash is the book's cash as a float for sizing.
func cash(b Book) float64 {
	return b.Cash().InexactFloat64()
}

// daysSince counts calendar days from the last trade of side to asOf.
func daysSince(b Book, symbol string, side portfolio.Side, asOf time.Time) (int, bool) {
	t, ok := b.LastTrade(symbol, side)
	if !ok {
		return 0, false
	}
	return int(market.Day(asOf).Sub(market.Day(t)).Hours() / 24), true
}

func needBars(in Input, n int) error {
	if len(in.Bars) < n {
		return fmt.Errorf("%w: %s needs %d bars, have %d", ErrInsufficientHistory, in.Symbol, n, len(in.Bars))
	}
	return nil
}

// undefined reports an indicator that has no value at the end of the
// window. Like a short window, it makes the evaluation a no-op.
func undefined(in Input, what string) error {
	return fmt.Errorf("%w: %s undefined for %s on %s", ErrInsufficientHistory, what, in.Symbol, in.AsOf.Format(time.DateOnly))
}
