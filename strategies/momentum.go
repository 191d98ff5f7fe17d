package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/quarks/indicators"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/risk"
)

const MomentumName = "momentum"

// Momentum trades a weighted blend of short, medium and long returns
// against a volatility-adjusted threshold.
type Momentum struct {
	Lookback  int
	Threshold float64
}

func NewMomentum(p Params) *Momentum {
	return &Momentum{Lookback: p.Lookback, Threshold: p.Threshold}
}

func (s *Momentum) Name() string { return MomentumName }

// Warmup covers the long return horizon and the 20-day average.
func (s *Momentum) Warmup() int { return max(3*s.Lookback+1, 20) }

func (s *Momentum) Evaluate(ctx context.Context, b Book, in Input) error {
	n := s.Lookback
	if err := needBars(in, s.Warmup()); err != nil {
		return err
	}

	c := market.Closes(in.Bars)
	price := in.Close()

	short, medium, long := indicators.PctChange(c, n), indicators.PctChange(c, 2*n), indicators.PctChange(c, 3*n)
	if !short.Defined(1) || !medium.Defined(1) || !long.Defined(1) {
		return undefined(in, "momentum score")
	}
	score := 0.5*short.Last() + 0.3*medium.Last() + 0.2*long.Last()
	sma20 := indicators.SMA(c, 20).Last()
	volRatio := indicators.VolumeRatio(market.Volumes(in.Bars), n).Last()
	volatility := indicators.Ratio(indicators.RollingStd(c, n), indicators.SMA(c, n))
	vol := volatility.Last()
	trendUp := price > indicators.Series(c).Back(4)
	thr := s.Threshold * (1 + vol)

	switch {
	case score > thr && volRatio > 1,
		score > 1.5*thr,
		score > 0 && trendUp && price > sma20:
		size := 0.05
		if score > 2*thr {
			size = 0.08
		}
		if vol > 1.2*indicators.SMA(volatility, n).Last() {
			size *= 0.7
		}
		qty := risk.FractionOfCash(cash(b), size, price)
		return buy(ctx, b, in.Symbol, qty, fmt.Sprintf("momentum %.4f above %.4f", score, thr))

	case score < -thr && volRatio > 1,
		score < -1.5*thr,
		score < 0 && price < sma20 && !trendUp:
		if h, ok := b.Holding(in.Symbol); ok {
			return sell(ctx, b, in.Symbol, h.Quantity, fmt.Sprintf("momentum %.4f below %.4f", score, -thr))
		}

	default:
		h, ok := b.Holding(in.Symbol)
		if !ok {
			return nil
		}
		profit := risk.ProfitPct(h.AvgPrice.InexactFloat64(), price)
		target, stop := risk.ScaledTargets(vol, 0.10, 0.12, 0.04, 0.05)
		switch {
		case profit > target:
			return sell(ctx, b, in.Symbol, h.Quantity, fmt.Sprintf("profit taking at %.2f%%", 100*profit))
		case profit < stop:
			return sell(ctx, b, in.Symbol, h.Quantity, fmt.Sprintf("stop loss at %.2f%%", 100*profit))
		case profit > 0.7*target && score < 0:
			return sell(ctx, b, in.Symbol, risk.Half(h.Quantity), fmt.Sprintf("partial profit at %.2f%%", 100*profit))
		}
	}
	return nil
}
