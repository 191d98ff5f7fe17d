package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/quarks/indicators"
	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/rustyeddy/quarks/risk"
)

const AdaptiveName = "adaptive"

// Trend classifies market structure from ADX.
type Trend int

const (
	Ranging Trend = iota
	WeakTrend
	StrongTrend
)

func (t Trend) String() string {
	switch t {
	case StrongTrend:
		return "strong"
	case WeakTrend:
		return "weak"
	default:
		return "ranging"
	}
}

// Band is the parameter set picked by annualised volatility.
type Band struct {
	Name                 string
	Short, Medium, Long  int
	RSI, Bollinger, ATR  int
	ProfitTake, StopLoss float64
	VolatilityFactor     float64
}

var (
	highVolatility   = Band{Name: "high", Short: 3, Medium: 8, Long: 15, RSI: 5, Bollinger: 8, ATR: 5, ProfitTake: 0.04, StopLoss: 0.03}
	mediumVolatility = Band{Name: "medium", Short: 5, Medium: 10, Long: 20, RSI: 7, Bollinger: 10, ATR: 7, ProfitTake: 0.05, StopLoss: 0.04}
	lowVolatility    = Band{Name: "low", Short: 8, Medium: 15, Long: 30, RSI: 10, Bollinger: 15, ATR: 10, ProfitTake: 0.07, StopLoss: 0.05}
)

// SelectBand picks the parameter set for an annualised volatility. An
// undefined volatility selects the low band.
func SelectBand(vol float64) Band {
	var b Band
	switch {
	case vol > 0.4:
		b = highVolatility
	case vol > 0.25:
		b = mediumVolatility
	default:
		b = lowVolatility
	}
	b.VolatilityFactor = 1
	switch {
	case vol > 0.4:
		b.VolatilityFactor = 0.7
	case vol < 0.25:
		b.VolatilityFactor = 1.2
	}
	return b
}

type weights struct{ trend, momentum, volatility, volume float64 }

func (t Trend) weights() weights {
	switch t {
	case StrongTrend:
		return weights{0.5, 0.3, 0.05, 0.15}
	case Ranging:
		return weights{0.2, 0.2, 0.4, 0.2}
	default:
		return weights{0.35, 0.35, 0.15, 0.15}
	}
}

// MinHold is the number of days a position is kept before sell signals
// count.
func (t Trend) MinHold() int {
	switch t {
	case StrongTrend:
		return 3
	case Ranging:
		return 1
	default:
		return 2
	}
}

// Thresholds returns the composite score needed to buy and to sell.
func (t Trend) Thresholds(transition bool) (buy, sell float64) {
	switch t {
	case StrongTrend:
		buy, sell = 10, -10
	case Ranging:
		buy, sell = 20, -20
	default:
		buy, sell = 15, -15
	}
	if transition {
		buy *= 1.3
		sell *= 0.7
	}
	return buy, sell
}

// Assessment is one day's read of the market for the adaptive strategy.
type Assessment struct {
	Volatility float64
	Band       Band
	Trend      Trend
	Transition bool
	Uptrend    bool
	Downtrend  bool

	TrendScore      float64
	MomentumScore   float64
	VolatilityScore float64
	VolumeScore     float64
	Score           float64

	Price float64
	ATR   float64

	// Trigger conditions from the last two values of each series.
	RSIOversoldTurning   bool
	RSIOverboughtTurning bool
	LowerBandBounce      bool
	UpperBandTurning     bool
	VolumeSpike          bool
	PercentB             float64
}

const (
	adaptiveMinBars = 30
	sellCooldown    = 1
)

// Adaptive re-derives its parameters from volatility every day, scores
// trend, momentum, volatility and volume, and manages open positions with
// profit targets, a stop and a trailing stop.
type Adaptive struct{}

func NewAdaptive() *Adaptive { return &Adaptive{} }

func (s *Adaptive) Name() string { return AdaptiveName }

// Warmup is about 250 calendar days of bars.
func (s *Adaptive) Warmup() int { return 175 }

// Assess computes the indicators and the composite score for the window.
func (s *Adaptive) Assess(in Input) (Assessment, error) {
	if err := needBars(in, adaptiveMinBars); err != nil {
		return Assessment{}, err
	}

	c := indicators.Series(market.Closes(in.Bars))
	h, l := market.Highs(in.Bars), market.Lows(in.Bars)
	v := market.Volumes(in.Bars)

	a := Assessment{Price: c.Last()}
	a.Volatility = indicators.AnnualizedVolatility(c, 20).Last()
	p := SelectBand(a.Volatility)
	a.Band = p

	smaS, smaM, smaL := indicators.SMA(c, p.Short), indicators.SMA(c, p.Medium), indicators.SMA(c, p.Long)
	emaS, emaM := indicators.EMA(c, p.Short), indicators.EMA(c, p.Medium)
	macd := indicators.MACD(c, p.Short, p.Long, p.Medium/2)
	bb := indicators.Bollinger(c, p.Bollinger, 1.8)
	atr := indicators.ATR(h, l, c, p.ATR)
	atrPct := indicators.Ratio(atr, c)
	rsi := indicators.RSI(c, p.RSI)
	stoch := indicators.Stochastic(h, l, c, p.RSI, 3)
	volRatio := indicators.VolumeRatio(v, p.Medium)
	obv := indicators.OBV(c, v)
	adx := indicators.ADX(h, l, c, p.Medium).ADX
	adxROC := indicators.PctChange(adx, 5)

	if !smaL.Defined(1) || !rsi.Defined(2) || !atr.Defined(1) || !bb.Middle.Defined(2) {
		return Assessment{}, undefined(in, "adaptive indicators")
	}

	a.ATR = atr.Last()
	a.PercentB = bb.PercentB.Last()

	switch x := adx.Last(); {
	case x > 15:
		a.Trend = StrongTrend
	case x > 10:
		a.Trend = WeakTrend
	default:
		a.Trend = Ranging
	}
	a.Transition = math.Abs(adxROC.Last()) > 0.1
	a.Uptrend = a.Price > smaM.Last() && smaS.Last() > smaM.Last()
	a.Downtrend = a.Price < smaM.Last() && smaS.Last() < smaM.Last()

	points := func(cond bool, n float64) float64 {
		if cond {
			return n
		}
		return 0
	}

	a.TrendScore = points(a.Price > smaL.Last(), 10) +
		points(a.Price > smaM.Last(), 10) +
		points(a.Price > smaS.Last(), 10) +
		points(emaS.Last() > emaM.Last(), 10) +
		points(macd.Line.Last() > macd.Signal.Last(), 10) +
		points(macd.Line.Last() > 0, 5) +
		points(macd.Line.Rising(), 5)

	r := rsi.Last()
	a.MomentumScore = points(r > 40 && r < 70, 10) +
		points(rsi.Rising(), 10) +
		points(r < 40, 10) +
		points(stoch.K.Last() > stoch.D.Last(), 10) +
		points(a.Price > c.Back(2), 10)

	a.VolatilityScore = points(a.PercentB < 0.4, 10) -
		points(a.PercentB > 0.6, 10) +
		points(atrPct.Last() < indicators.SMA(atrPct, 10).Last(), 10)

	a.VolumeScore = points(volRatio.Last() > 1, 10) +
		points(obv.Last() > indicators.SMA(obv, p.Medium).Last(), 10)

	w := a.Trend.weights()
	a.Score = a.TrendScore*w.trend + a.MomentumScore*w.momentum +
		a.VolatilityScore*w.volatility + a.VolumeScore*w.volume

	a.RSIOversoldTurning = r < 35 && rsi.Rising()
	a.RSIOverboughtTurning = r > 70 && rsi.Falling()
	a.LowerBandBounce = a.PercentB < 0.2 && bb.PercentB.Rising()
	a.UpperBandTurning = a.PercentB > 0.8 && bb.PercentB.Falling()
	a.VolumeSpike = volRatio.Last() > 1.5 && a.Price > c.Prev()
	return a, nil
}

// Size is the share count for a new entry: risk scaled by conviction and
// volatility, with the stop two ATRs below the close.
func (a Assessment) Size(cash float64) int64 {
	riskPct := 0.03 * risk.Clamp(a.Score/60, 0.5, 1.5) * a.Band.VolatilityFactor
	return risk.Calculate(risk.Inputs{
		Cash:       cash,
		RiskPct:    riskPct,
		EntryPrice: a.Price,
		StopPrice:  a.Price - 2*a.ATR,
		MaxPct:     0.35,
	}).Shares
}

func (s *Adaptive) Evaluate(ctx context.Context, b Book, in Input) error {
	a, err := s.Assess(in)
	if err != nil {
		return err
	}
	return s.act(ctx, b, in, a)
}

// act trades on one day's assessment: entries first, then signal exits,
// then the exit overlay on whatever position is left.
func (s *Adaptive) act(ctx context.Context, b Book, in Input, a Assessment) error {
	minHold := a.Trend.MinHold()
	buyAt, sellAt := a.Trend.Thresholds(a.Transition)

	// Guards come from the log as it stands before today's trades.
	var recentBuy, recentSell bool
	daysHeld := 0
	if _, held := b.Holding(in.Symbol); held {
		if d, ok := daysSince(b, in.Symbol, portfolio.Buy, in.AsOf); ok {
			daysHeld = d
			recentBuy = d < minHold
		}
	} else if d, ok := daysSince(b, in.Symbol, portfolio.Sell, in.AsOf); ok {
		recentSell = d < sellCooldown
	}
	canBuy := !recentBuy && !recentSell
	canSell := daysHeld >= minHold

	var reason string
	switch {
	case a.Trend == StrongTrend && a.Uptrend:
		if a.Score > buyAt && canBuy {
			reason = "strong uptrend"
		}
	case a.Trend == Ranging:
		if a.Score > buyAt && a.PercentB < 0.4 && canBuy {
			reason = "range low"
		}
	case a.Trend == WeakTrend && a.Uptrend:
		if a.Score > buyAt && canBuy {
			reason = "weak uptrend"
		}
	}
	if canBuy {
		switch {
		case a.RSIOversoldTurning:
			reason = "rsi oversold turning up"
		case a.LowerBandBounce:
			reason = "lower band bounce"
		case a.VolumeSpike:
			reason = "volume spike"
		}
	}
	if reason != "" {
		reason = fmt.Sprintf("%s, score %.2f, %s volatility", reason, a.Score, a.Band.Name)
		if err := buy(ctx, b, in.Symbol, a.Size(cash(b)), reason); err != nil {
			return err
		}
	}

	if _, held := b.Holding(in.Symbol); held && canSell {
		reason = ""
		switch {
		case a.Trend == StrongTrend && a.Downtrend:
			if a.Score < sellAt {
				reason = "strong downtrend"
			}
		case a.Trend == Ranging:
			if a.Score < sellAt && a.PercentB > 0.6 {
				reason = "range high"
			}
		case a.Trend == WeakTrend && a.Downtrend:
			if a.Score < sellAt {
				reason = "weak downtrend"
			}
		}
		switch {
		case a.RSIOverboughtTurning:
			reason = "rsi overbought turning down"
		case a.UpperBandTurning:
			reason = "upper band turning down"
		}
		if reason != "" {
			if err := s.sellAll(ctx, b, in.Symbol, fmt.Sprintf("%s, score %.2f", reason, a.Score)); err != nil {
				return err
			}
		}
	}

	h, held := b.Holding(in.Symbol)
	if !held || !canSell {
		return nil
	}
	policy := risk.DefaultExitPolicy(a.Band.ProfitTake, a.Band.StopLoss)
	exits := risk.EvaluateExits(policy, risk.Position{
		AvgPrice: h.AvgPrice.InexactFloat64(),
		Price:    a.Price,
		Peak:     peakSinceBuy(b, in, a.Price),
	})
	for _, e := range exits.Exits {
		h, held := b.Holding(in.Symbol)
		if !held {
			break
		}
		qty := h.Quantity
		if !e.Full() {
			qty = risk.Half(qty)
		}
		if err := sell(ctx, b, in.Symbol, qty, e.Msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Adaptive) sellAll(ctx context.Context, b Book, symbol, reason string) error {
	h, ok := b.Holding(symbol)
	if !ok {
		return nil
	}
	return sell(ctx, b, symbol, h.Quantity, reason)
}

// peakSinceBuy is the highest close from the day of the last buy through
// today.
func peakSinceBuy(b Book, in Input, price float64) float64 {
	peak := price
	bought, ok := b.LastTrade(in.Symbol, portfolio.Buy)
	if !ok {
		return peak
	}
	from := market.Day(bought)
	for _, bar := range in.Bars {
		if !bar.Date.Before(from) && bar.Close > peak {
			peak = bar.Close
		}
	}
	return peak
}
