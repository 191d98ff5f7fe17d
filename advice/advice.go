// Package advice produces a stateless recommendation sheet for a symbol
// from its last year of daily bars.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rustyeddy/quarks/indicators"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/strategies"
)

// Band positions reported by BollingerPosition.
const (
	BelowLower = "below_lower_band"
	AboveUpper = "above_upper_band"
	Within     = "within_bands"
)

// Crossover kinds reported by MACrossover.
const (
	GoldenCross = "golden_cross"
	DeathCross  = "death_cross"
	NoCross     = "none"
)

// Recommendation is one strategy's view of the latest bar.
type Recommendation struct {
	Strategy string
	strategies.Decision

	// Value is the headline number: the one-year return or momentum in
	// percent, or the distance of the close from the middle band.
	Value float64
	Kind  string // band position or crossover type, when applicable
}

// Consensus is the majority view over a set of recommendations.
type Consensus struct {
	strategies.Decision
	Counts map[strategies.Signal]int
}

// Sheet is the full advice for one symbol.
type Sheet struct {
	Symbol          string
	AsOf            time.Time
	CurrentPrice    float64
	OneYearReturn   float64 // percent
	Recommendations []Recommendation
	Final           Consensus
}

// Generate loads a year of bars ending at asOf and evaluates every
// recommender. The current price comes from q when it answers and falls
// back to the last close.
func Generate(ctx context.Context, p market.Provider, q market.Quoter, symbol string, asOf time.Time, params strategies.Params) (Sheet, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return Sheet{}, err
	}
	symbol = strings.ToUpper(symbol)
	end := market.Day(asOf)

	bars, err := p.Range(ctx, symbol, end.AddDate(-1, 0, 0), end)
	if err != nil {
		return Sheet{}, fmt.Errorf("advice %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return Sheet{}, fmt.Errorf("advice %s: %w", symbol, market.ErrNotFound)
	}
	closes := market.Closes(bars)

	s := Sheet{
		Symbol:       symbol,
		AsOf:         bars[len(bars)-1].Date,
		CurrentPrice: closes[len(closes)-1],
	}
	if q != nil {
		if px, err := q.Quote(ctx, symbol); err == nil {
			s.CurrentPrice = px
		} else {
			slog.Debug("quote unavailable, using last close", "symbol", symbol, "err", err)
		}
	}

	bh := BuyAndHold(closes)
	s.OneYearReturn = bh.Value
	s.Recommendations = []Recommendation{
		bh,
		Momentum(closes, params.Lookback, params.Threshold),
		BollingerPosition(closes, params.Window, params.NumStd),
		MACrossover(closes, params.ShortWindow, params.LongWindow),
	}
	s.Final = Majority(s.Recommendations...)
	return s, nil
}

// BuyAndHold recommends buying when the period return exceeds 10%.
func BuyAndHold(closes []float64) Recommendation {
	r := Recommendation{Strategy: "buy_and_hold"}
	if len(closes) == 0 {
		r.Reason = "no data"
		return r
	}
	first, last := closes[0], closes[len(closes)-1]
	r.Value = (last - first) / first * 100
	r.Reason = fmt.Sprintf("1-Year Return: %.2f%%", r.Value)
	if r.Value > 10 {
		r.Signal = strategies.Buy
	}
	return r
}

// Momentum compares the lookback-day return with ±threshold.
func Momentum(closes []float64, lookback int, threshold float64) Recommendation {
	ret := indicators.PctChange(closes, lookback).Last()
	r := Recommendation{Strategy: "momentum", Value: ret * 100}

	switch {
	case ret > threshold:
		r.Signal = strategies.Buy
		r.Reason = fmt.Sprintf("Positive momentum (%.2f%%)", r.Value)
	case ret < -threshold:
		r.Signal = strategies.Sell
		r.Reason = fmt.Sprintf("Negative momentum (%.2f%%)", r.Value)
	default:
		r.Reason = "No significant momentum"
	}
	return r
}

// BollingerPosition places the last close relative to the bands.
func BollingerPosition(closes []float64, window int, numStd float64) Recommendation {
	bb := indicators.Bollinger(closes, window, numStd)
	price, ma := lastOf(closes), bb.Middle.Last()
	r := Recommendation{Strategy: "bollinger", Value: (price - ma) / ma * 100}

	switch {
	case price < bb.Lower.Last():
		r.Signal, r.Kind = strategies.Buy, BelowLower
		r.Reason = "Stock is oversold (below lower Bollinger Band)"
	case price > bb.Upper.Last():
		r.Signal, r.Kind = strategies.Sell, AboveUpper
		r.Reason = "Stock is overbought (above upper Bollinger Band)"
	default:
		r.Kind = Within
		r.Reason = "Stock is within Bollinger Bands"
	}
	return r
}

// MACrossover looks for the short SMA crossing the long SMA on the last bar.
func MACrossover(closes []float64, short, long int) Recommendation {
	s, l := indicators.SMA(closes, short), indicators.SMA(closes, long)
	r := Recommendation{Strategy: "ma_crossover", Value: s.Last() - l.Last(), Kind: NoCross}

	switch {
	case s.Prev() < l.Prev() && s.Last() > l.Last():
		r.Signal, r.Kind = strategies.Buy, GoldenCross
		r.Reason = fmt.Sprintf("Golden Cross detected (%dMA crossed above %dMA)", short, long)
	case s.Prev() > l.Prev() && s.Last() < l.Last():
		r.Signal, r.Kind = strategies.Sell, DeathCross
		r.Reason = fmt.Sprintf("Death Cross detected (%dMA crossed below %dMA)", short, long)
	default:
		r.Reason = "No MA crossover detected"
	}
	return r
}

// Majority returns BUY or SELL only when that signal outnumbers each of the
// other two; anything else is HOLD.
func Majority(recs ...Recommendation) Consensus {
	c := Consensus{Counts: map[strategies.Signal]int{
		strategies.Buy:  0,
		strategies.Sell: 0,
		strategies.Hold: 0,
	}}
	for _, r := range recs {
		c.Counts[r.Signal]++
	}
	buy, sell, hold := c.Counts[strategies.Buy], c.Counts[strategies.Sell], c.Counts[strategies.Hold]

	switch {
	case buy > sell && buy > hold:
		c.Signal = strategies.Buy
		c.Reason = fmt.Sprintf("Majority (%d/%d) of strategies recommend buying", buy, len(recs))
	case sell > buy && sell > hold:
		c.Signal = strategies.Sell
		c.Reason = fmt.Sprintf("Majority (%d/%d) of strategies recommend selling", sell, len(recs))
	default:
		c.Signal = strategies.Hold
		c.Reason = fmt.Sprintf("No clear consensus (Buy: %d, Sell: %d, Hold: %d)", buy, sell, hold)
	}
	return c
}

func lastOf(x []float64) float64 {
	return indicators.Series(x).Last()
}
