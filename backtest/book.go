package backtest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/rustyeddy/quarks/strategies"
	"github.com/shopspring/decimal"
)

// tradeTime is when simulated orders are stamped on their day.
const tradeTime = 9*time.Hour + 15*time.Minute

var _ strategies.Book = (*book)(nil)

// book executes a strategy's intents against the run's ledger. Historical
// intents fill at the day's close; live intents fill at the quoter's price.
type book struct {
	*portfolio.Ledger

	quoter market.Quoter
	log    *slog.Logger

	asOf  time.Time
	close float64

	rejections int
}

func (b *book) Submit(ctx context.Context, in strategies.Intent) error {
	price, err := b.price(ctx, in)
	if err != nil {
		b.reject(in, err)
		return err
	}

	tx, err := b.Execute(portfolio.Order{
		Side:     in.Side,
		Symbol:   in.Symbol,
		Quantity: in.Quantity,
		Price:    decimal.NewFromFloat(price),
		Time:     market.Day(b.asOf).Add(tradeTime),
		Reason:   in.Reason,
	})
	if err != nil {
		b.reject(in, err)
		return err
	}

	attrs := []any{
		"side", tx.Side,
		"symbol", tx.Symbol,
		"qty", tx.Quantity,
		"price", tx.Price.StringFixed(2),
		"cash", b.Cash().StringFixed(2),
		"reason", tx.Reason,
	}
	if tx.PL != nil {
		attrs = append(attrs, "pl", tx.PL.StringFixed(2))
	}
	b.log.Info("trade", attrs...)
	return nil
}

func (b *book) price(ctx context.Context, in strategies.Intent) (float64, error) {
	if !in.Live {
		return b.close, nil
	}
	if b.quoter == nil {
		return 0, fmt.Errorf("%w: no live quote source for %s", market.ErrNotFound, in.Symbol)
	}
	p, err := b.quoter.Quote(ctx, in.Symbol)
	if err != nil {
		if errors.Is(err, market.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: quote %s: %v", market.ErrNotFound, in.Symbol, err)
	}
	return p, nil
}

func (b *book) reject(in strategies.Intent, err error) {
	b.rejections++
	b.log.Warn("order rejected",
		"date", b.asOf.Format(time.DateOnly),
		"side", in.Side,
		"symbol", in.Symbol,
		"qty", in.Quantity,
		"live", in.Live,
		"err", err,
	)
}
