package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quarks/indicators"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/risk"
)

const BollingerName = "bollinger"

// rsiPeriod confirms band touches.
const rsiPeriod = 14

// Bollinger buys closes under the lower band and sells closes over the
// upper band, each confirmed by RSI, with %B mean-reversion entries and
// exits between the bands.
type Bollinger struct {
	Window int
	NumStd float64
}

func NewBollinger(p Params) *Bollinger {
	return &Bollinger{Window: p.Window, NumStd: p.NumStd}
}

func (s *Bollinger) Name() string { return BollingerName }

// Warmup leaves room for the 20-day average of band width.
func (s *Bollinger) Warmup() int { return max(2*s.Window, s.Window+20) }

func (s *Bollinger) Evaluate(ctx context.Context, b Book, in Input) error {
	if err := needBars(in, s.Window); err != nil {
		return err
	}

	c := market.Closes(in.Bars)
	price := in.Close()
	bb := indicators.Bollinger(c, s.Window, s.NumStd)
	rsiSeries := indicators.RSI(c, rsiPeriod)
	if !bb.Lower.Defined(1) || !rsiSeries.Defined(1) {
		return undefined(in, "bands or rsi")
	}
	rsi := rsiSeries.Last()
	pb := bb.PercentB
	// %B turns need two defined values; flat windows have none.
	turning := pb.Defined(2)

	switch {
	case price < bb.Lower.Last() && rsi < 30:
		qty := risk.FractionOfCash(cash(b), 0.05, price)
		return buy(ctx, b, in.Symbol, qty, fmt.Sprintf("close below lower band, rsi %.1f", rsi))

	case price > bb.Upper.Last() && rsi > 70:
		if h, ok := b.Holding(in.Symbol); ok {
			return sell(ctx, b, in.Symbol, h.Quantity, fmt.Sprintf("close above upper band, rsi %.1f", rsi))
		}

	case turning && pb.Last() < 0.1 && pb.Rising() && bb.Width.Last() > indicators.SMA(bb.Width, 20).Last():
		qty := risk.FractionOfCash(cash(b), 0.03, price)
		return buy(ctx, b, in.Symbol, qty, fmt.Sprintf("%%B %.2f turning up", pb.Last()))

	case turning && pb.Last() > 0.9 && pb.Falling():
		if h, ok := b.Holding(in.Symbol); ok {
			return sell(ctx, b, in.Symbol, risk.Half(h.Quantity), fmt.Sprintf("%%B %.2f turning down", pb.Last()))
		}
	}
	return nil
}
