package market

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a provider has no bar for the requested
// symbol and day.
var ErrNotFound = errors.New("market: no data")

// Provider supplies daily bars. Range returns bars ordered by date and may
// return an empty slice.
type Provider interface {
	Bar(ctx context.Context, symbol string, date time.Time) (Bar, error)
	Range(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}

// Quoter returns the current traded price of a symbol.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}

// LatestClose finds the most recent close on or before date by looking
// back over span calendar days.
func LatestClose(ctx context.Context, p Provider, symbol string, date time.Time, span int) (float64, error) {
	bars, err := p.Range(ctx, symbol, Day(date).AddDate(0, 0, -span), date)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, ErrNotFound
	}
	return bars[len(bars)-1].Close, nil
}

// CloseQuoter quotes the latest known close from a Provider. It stands in
// for a live feed when backtesting offline.
type CloseQuoter struct {
	Provider Provider
	Now      func() time.Time
}

func (q CloseQuoter) Quote(ctx context.Context, symbol string) (float64, error) {
	now := time.Now
	if q.Now != nil {
		now = q.Now
	}
	return LatestClose(ctx, q.Provider, symbol, now(), 14)
}
