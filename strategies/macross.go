package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quarks/indicators"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/rustyeddy/quarks/risk"
)

const MACrossName = "ma-cross"

// MACross trades golden and death crosses of two simple moving averages,
// confirmed by MACD and volume. Its orders are priced live.
type MACross struct {
	Short int
	Long  int
}

func NewMACross(p Params) (*MACross, error) {
	if p.ShortWindow <= 0 || p.LongWindow <= 0 {
		return nil, fmt.Errorf("%w: invalid window sizes short=%d long=%d",
			ErrInvalidParameters, p.ShortWindow, p.LongWindow)
	}
	return &MACross{Short: p.ShortWindow, Long: p.LongWindow}, nil
}

func (s *MACross) Name() string { return MACrossName }

// Warmup includes the bar before today so a cross can be seen, and covers
// the 20-day averages.
func (s *MACross) Warmup() int { return max(s.Long, 20) + 1 }

func (s *MACross) Evaluate(ctx context.Context, b Book, in Input) error {
	if err := needBars(in, s.Long); err != nil {
		return err
	}

	c := market.Closes(in.Bars)
	v := indicators.Series(market.Volumes(in.Bars))
	price := in.Close()

	avg20 := indicators.SMA(c, 20)
	short := indicators.SMA(c, s.Short)
	long := indicators.SMA(c, s.Long)
	hist := indicators.MACD(c, 20, s.Short, 9).Hist
	volUp := v.Last() > indicators.SMA(v, 20).Last()
	if !short.Defined(2) || !long.Defined(2) || !avg20.Defined(1) {
		return undefined(in, "moving averages")
	}
	sma20 := avg20.Last()

	switch {
	case short.Prev() < long.Prev() && short.Last() > long.Last() && hist.Last() > 0 && volUp:
		qty := risk.FractionOfCash(cash(b), 0.10, price)
		return s.submit(ctx, b, portfolio.Buy, in.Symbol, qty, "golden cross")

	case short.Prev() > long.Prev() && short.Last() < long.Last() && hist.Last() < 0 && volUp:
		if h, ok := b.Holding(in.Symbol); ok {
			return s.submit(ctx, b, portfolio.Sell, in.Symbol, h.Quantity, "death cross")
		}

	case price > sma20 && sma20 > short.Last() && hist.Last() > hist.Prev() && hist.Prev() > 0:
		qty := risk.FractionOfCash(cash(b), 0.05, price)
		return s.submit(ctx, b, portfolio.Buy, in.Symbol, qty, "uptrend above moving averages")

	default:
		h, ok := b.Holding(in.Symbol)
		if ok && price > 1.1*sma20 && hist.Falling() {
			return s.submit(ctx, b, portfolio.Sell, in.Symbol, risk.Third(h.Quantity), "extended above 20-day average")
		}
	}
	return nil
}

// submit sends a live-priced intent. Sizing uses the window's close while
// the fill uses the current quote.
func (s *MACross) submit(ctx context.Context, b Book, side portfolio.Side, symbol string, qty int64, reason string) error {
	return submit(ctx, b, Intent{Side: side, Symbol: symbol, Quantity: qty, Live: true, Reason: reason})
}
