package strategies

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/quarks/market"
	"github.com/rustyeddy/quarks/portfolio"
	"github.com/rustyeddy/quarks/risk"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBook fills intents at the window's close, or at quote for live
// intents, and records everything submitted.
type testBook struct {
	*portfolio.Ledger
	price    float64
	quote    float64
	asOf     time.Time
	intents  []Intent
	rejected int
}

func newTestBook(cash int64) *testBook {
	return &testBook{Ledger: portfolio.New("test", decimal.NewFromInt(cash))}
}

func (b *testBook) Submit(_ context.Context, in Intent) error {
	b.intents = append(b.intents, in)
	price := b.price
	if in.Live {
		if b.quote == 0 {
			b.rejected++
			return market.ErrNotFound
		}
		price = b.quote
	}
	_, err := b.Execute(portfolio.Order{
		Side:     in.Side,
		Symbol:   in.Symbol,
		Quantity: in.Quantity,
		Price:    decimal.NewFromFloat(price),
		Time:     b.asOf,
		Reason:   in.Reason,
	})
	if err != nil {
		b.rejected++
	}
	return err
}

// seed opens a position as if bought daysAgo before asOf.
func (b *testBook) seed(t *testing.T, symbol string, qty int64, price float64, daysAgo int) {
	t.Helper()
	_, err := b.Execute(portfolio.Order{
		Side:     portfolio.Buy,
		Symbol:   symbol,
		Quantity: qty,
		Price:    decimal.NewFromFloat(price),
		Time:     b.asOf.AddDate(0, 0, -daysAgo),
	})
	require.NoError(t, err)
}

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// mkBars builds weekday bars from closes with a one-point range and flat
// volume.
func mkBars(closes []float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	d := day0
	for i, c := range closes {
		for !market.IsTradingDay(d) {
			d = d.AddDate(0, 0, 1)
		}
		bars[i] = market.Bar{Date: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func geometric(n int, start, growth float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start * math.Pow(growth, float64(i))
	}
	return out
}

func input(bars []market.Bar) Input {
	return Input{Symbol: "SYM", AsOf: bars[len(bars)-1].Date, Bars: bars}
}

func evaluate(t *testing.T, s Strategy, b *testBook, bars []market.Bar) {
	t.Helper()
	in := input(bars)
	b.price = in.Close()
	b.asOf = in.AsOf
	require.NoError(t, s.Evaluate(context.Background(), b, in))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"adaptive", "bollinger", "buy-and-hold", "ma-cross", "momentum"}, Names())

	tests := []struct {
		name string
		want string
	}{
		{"buy-and-hold", BuyAndHoldName},
		{"BUYHOLD", BuyAndHoldName},
		{"Momentum", MomentumName},
		{"BOLLINGER", BollingerName},
		{"MACROSS", MACrossName},
		{"ma-cross", MACrossName},
		{"QUARKS", AdaptiveName},
		{" adaptive ", AdaptiveName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := New(tt.name, Params{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Name())
		})
	}
}

func TestRegistry_Invalid(t *testing.T) {
	t.Parallel()

	_, err := New("martingale", Params{})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = New(MACrossName, Params{ShortWindow: -5})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = New(BollingerName, Params{Window: 1})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewMACross(Params{ShortWindow: 50})
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestParamsDefaults(t *testing.T) {
	t.Parallel()

	p := Params{Lookback: 10}.WithDefaults()
	assert.Equal(t, 10, p.Lookback)
	assert.Equal(t, 0.05, p.Threshold)
	assert.Equal(t, 20, p.Window)
	assert.Equal(t, 2.0, p.NumStd)
	assert.Equal(t, 50, p.ShortWindow)
	assert.Equal(t, 200, p.LongWindow)
	require.NoError(t, p.Validate())
}

func TestWarmup(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 43, NewMomentum(DefaultParams()).Warmup())
	assert.Equal(t, 40, NewBollinger(DefaultParams()).Warmup())
	m, err := NewMACross(DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, 201, m.Warmup())
	assert.Equal(t, 175, NewAdaptive().Warmup())
}

func TestInsufficientHistory(t *testing.T) {
	t.Parallel()

	bars := mkBars([]float64{100, 101, 102})
	for _, name := range []string{MomentumName, BollingerName, MACrossName, AdaptiveName} {
		s, err := New(name, Params{})
		require.NoError(t, err)
		err = s.Evaluate(context.Background(), newTestBook(1000), input(bars))
		require.ErrorIs(t, err, ErrInsufficientHistory, name)
	}
}

func TestUndefinedIndicatorIsNoOp(t *testing.T) {
	t.Parallel()

	for _, name := range []string{MomentumName, BollingerName, MACrossName, AdaptiveName} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s, err := New(name, Params{})
			require.NoError(t, err)

			// a full window whose last close is missing
			closes := flatCloses(s.Warmup())
			closes[len(closes)-1] = math.NaN()
			bars := mkBars(closes)

			b := newTestBook(100000)
			b.asOf = bars[len(bars)-1].Date
			b.seed(t, "SYM", 10, 100, 5)
			err = s.Evaluate(context.Background(), b, input(bars))
			require.ErrorIs(t, err, ErrInsufficientHistory)
			assert.Contains(t, err.Error(), "undefined")
			assert.Empty(t, b.intents)
		})
	}
}

func TestBuyAndHold(t *testing.T) {
	t.Parallel()

	b := newTestBook(10000)
	s := NewBuyAndHold(Params{})
	bars := mkBars([]float64{300})

	evaluate(t, s, b, bars)
	require.Len(t, b.intents, 1)
	assert.Equal(t, portfolio.Buy, b.intents[0].Side)
	assert.Equal(t, int64(33), b.intents[0].Quantity)

	// later days never trade again
	evaluate(t, s, b, mkBars([]float64{300, 250}))
	assert.Len(t, b.intents, 1)
}

func TestBuyAndHold_Investment(t *testing.T) {
	t.Parallel()

	b := newTestBook(10000)
	evaluate(t, NewBuyAndHold(Params{InitialInvestment: 1000}), b, mkBars([]float64{300}))
	require.Len(t, b.intents, 1)
	assert.Equal(t, int64(3), b.intents[0].Quantity)

	// too little to buy one share
	b = newTestBook(10000)
	evaluate(t, NewBuyAndHold(Params{InitialInvestment: 100}), b, mkBars([]float64{300}))
	assert.Empty(t, b.intents)
}

func TestMomentum_StrongTrendBuys(t *testing.T) {
	t.Parallel()

	b := newTestBook(100000)
	bars := mkBars(geometric(50, 100, 1.01))
	evaluate(t, NewMomentum(DefaultParams()), b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.Equal(t, portfolio.Buy, in.Side)
	assert.False(t, in.Live)
	// momentum is more than twice the threshold, so 8% of cash
	assert.Equal(t, risk.FractionOfCash(100000, 0.08, bars[len(bars)-1].Close), in.Quantity)
	assert.Equal(t, int64(49), in.Quantity)
}

func TestMomentum_Exits(t *testing.T) {
	t.Parallel()

	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 100
	}

	// a slow decline with a four-day uptick: momentum slightly negative
	// but no sell signal
	turning := geometric(46, 100, 0.999)
	last := turning[len(turning)-1]
	for k := 1; k <= 4; k++ {
		turning = append(turning, last*math.Pow(1.001, float64(k)))
	}
	turningClose := turning[len(turning)-1]

	tests := []struct {
		name    string
		closes  []float64
		avg     float64
		wantQty int64
		held    bool
	}{
		{"take profit", flat, 80, 100, false},
		{"stop loss", flat, 120, 100, false},
		{"inside band", flat, 95, 0, true},
		{"partial on weakening momentum", turning, turningClose / 1.10, 50, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bars := mkBars(tt.closes)
			b := newTestBook(100000)
			b.asOf = bars[len(bars)-1].Date
			b.seed(t, "SYM", 100, tt.avg, 5)
			evaluate(t, NewMomentum(DefaultParams()), b, bars)

			if tt.wantQty == 0 {
				assert.Empty(t, b.intents)
			} else {
				require.Len(t, b.intents, 1)
				assert.Equal(t, portfolio.Sell, b.intents[0].Side)
				assert.Equal(t, tt.wantQty, b.intents[0].Quantity)
			}
			_, held := b.Holding("SYM")
			assert.Equal(t, tt.held, held)
		})
	}
}

func bandBreakCloses() []float64 {
	closes := make([]float64, 0, 41)
	for i := 0; i < 40; i++ {
		closes = append(closes, 100+float64(i%2))
	}
	return append(closes, 85)
}

func TestBollinger_BuyBelowLowerBand(t *testing.T) {
	t.Parallel()

	b := newTestBook(100000)
	bars := mkBars(bandBreakCloses())
	evaluate(t, NewBollinger(DefaultParams()), b, bars)

	// exactly one buy of 5% of cash
	require.Len(t, b.intents, 1)
	assert.Equal(t, portfolio.Buy, b.intents[0].Side)
	assert.Equal(t, int64(58), b.intents[0].Quantity)
	assert.Equal(t, risk.FractionOfCash(100000, 0.05, 85), b.intents[0].Quantity)
	assert.Zero(t, b.rejected)
}

func TestBollinger_SellAboveUpperBandNeedsHolding(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 0, 41)
	for i := 0; i < 40; i++ {
		closes = append(closes, 100+float64(i%2))
	}
	closes = append(closes, 116)
	bars := mkBars(closes)

	b := newTestBook(100000)
	evaluate(t, NewBollinger(DefaultParams()), b, bars)
	assert.Empty(t, b.intents)

	b = newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 30, 100, 3)
	evaluate(t, NewBollinger(DefaultParams()), b, bars)
	require.Len(t, b.intents, 1)
	assert.Equal(t, portfolio.Sell, b.intents[0].Side)
	assert.Equal(t, int64(30), b.intents[0].Quantity)
	_, held := b.Holding("SYM")
	assert.False(t, held)
}

func TestMACross_UptrendBuyIsLive(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.ShortWindow, p.LongWindow = 30, 40
	s, err := NewMACross(p)
	require.NoError(t, err)

	bars := mkBars(geometric(100, 100, 1.01))
	last := bars[len(bars)-1].Close

	// Orders from this strategy fill at the live quote, not at the
	// simulated day's close.
	b := newTestBook(100000)
	b.quote = 500
	evaluate(t, s, b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.True(t, in.Live)
	assert.Equal(t, portfolio.Buy, in.Side)
	assert.Equal(t, risk.FractionOfCash(100000, 0.05, last), in.Quantity)

	txs := b.Transactions()
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Price.Equal(decimal.NewFromInt(500)))
}

func TestMACross_NoQuoteSkipsIntent(t *testing.T) {
	t.Parallel()

	p := DefaultParams()
	p.ShortWindow, p.LongWindow = 30, 40
	s, err := NewMACross(p)
	require.NoError(t, err)

	b := newTestBook(100000)
	evaluate(t, s, b, mkBars(geometric(100, 100, 1.01)))
	assert.Len(t, b.intents, 1)
	assert.Equal(t, 1, b.rejected)
	assert.Empty(t, b.Transactions())
}

// crossCloses falls 1% a day for 50 bars and then rises 2% a day for 20,
// so the 30-day average crosses above the 40-day average on the last bar.
// The mirror image crosses below.
func crossCloses(golden bool) []float64 {
	first, second := 0.99, 1.02
	if !golden {
		first, second = 1.01, 0.98
	}
	closes := geometric(50, 100, first)
	last := closes[len(closes)-1]
	for i := 1; i <= 20; i++ {
		closes = append(closes, last*math.Pow(second, float64(i)))
	}
	return closes
}

func newCross(t *testing.T) *MACross {
	t.Helper()
	p := DefaultParams()
	p.ShortWindow, p.LongWindow = 30, 40
	s, err := NewMACross(p)
	require.NoError(t, err)
	return s
}

func TestMACross_GoldenCrossBuysTenPercent(t *testing.T) {
	t.Parallel()

	bars := mkBars(crossCloses(true))
	bars[len(bars)-1].Volume = 2000
	price := bars[len(bars)-1].Close

	b := newTestBook(100000)
	b.quote = price
	evaluate(t, newCross(t), b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.Equal(t, portfolio.Buy, in.Side)
	assert.True(t, in.Live)
	assert.Equal(t, "golden cross", in.Reason)
	assert.Equal(t, risk.FractionOfCash(100000, 0.10, price), in.Quantity)

	// Without above-average volume the cross is not confirmed and the
	// smaller trend entry applies.
	bars[len(bars)-1].Volume = 1000
	b = newTestBook(100000)
	b.quote = price
	evaluate(t, newCross(t), b, bars)
	require.Len(t, b.intents, 1)
	assert.Equal(t, risk.FractionOfCash(100000, 0.05, price), b.intents[0].Quantity)
	assert.NotEqual(t, "golden cross", b.intents[0].Reason)
}

func TestMACross_DeathCrossSellsEverything(t *testing.T) {
	t.Parallel()

	bars := mkBars(crossCloses(false))
	bars[len(bars)-1].Volume = 2000

	b := newTestBook(100000)
	b.quote = bars[len(bars)-1].Close
	evaluate(t, newCross(t), b, bars)
	assert.Empty(t, b.intents)

	b = newTestBook(100000)
	b.quote = bars[len(bars)-1].Close
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 90, 100, 20)
	evaluate(t, newCross(t), b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.Equal(t, portfolio.Sell, in.Side)
	assert.True(t, in.Live)
	assert.Equal(t, int64(90), in.Quantity)
	assert.Equal(t, "death cross", in.Reason)
	_, held := b.Holding("SYM")
	assert.False(t, held)
}

func TestMACross_ExtendedRallySellsAThird(t *testing.T) {
	t.Parallel()

	// a 2% a day rally that stalls for three days: well above the 20-day
	// average with the MACD histogram rolling over
	closes := geometric(60, 100, 1.02)
	last := closes[len(closes)-1]
	closes = append(closes, last, last, last)
	bars := mkBars(closes)

	b := newTestBook(100000)
	b.quote = last
	evaluate(t, newCross(t), b, bars)
	assert.Empty(t, b.intents)

	b = newTestBook(100000)
	b.quote = last
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 90, 100, 30)
	evaluate(t, newCross(t), b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.Equal(t, portfolio.Sell, in.Side)
	assert.True(t, in.Live)
	assert.Equal(t, int64(30), in.Quantity)
	h, held := b.Holding("SYM")
	require.True(t, held)
	assert.Equal(t, int64(60), h.Quantity)
}

func TestBollinger_PercentBTurningUpBuysThreePercent(t *testing.T) {
	t.Parallel()

	// below the lower band but RSI above 30, so only the %B rule applies
	closes := append(bandBreakCloses()[:40], 90, 93)
	bars := mkBars(closes)

	b := newTestBook(100000)
	evaluate(t, NewBollinger(DefaultParams()), b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.Equal(t, portfolio.Buy, in.Side)
	assert.False(t, in.Live)
	assert.Equal(t, risk.FractionOfCash(100000, 0.03, 93), in.Quantity)
	assert.Equal(t, int64(32), in.Quantity)
}

func TestBollinger_PercentBTurningDownSellsHalf(t *testing.T) {
	t.Parallel()

	// above the upper band but RSI below 70, so only the %B rule applies
	closes := append(bandBreakCloses()[:40], 112, 109)
	bars := mkBars(closes)

	b := newTestBook(100000)
	evaluate(t, NewBollinger(DefaultParams()), b, bars)
	assert.Empty(t, b.intents)

	b = newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 30, 100, 3)
	evaluate(t, NewBollinger(DefaultParams()), b, bars)

	require.Len(t, b.intents, 1)
	in := b.intents[0]
	assert.Equal(t, portfolio.Sell, in.Side)
	assert.False(t, in.Live)
	assert.Equal(t, int64(15), in.Quantity)
	h, held := b.Holding("SYM")
	require.True(t, held)
	assert.Equal(t, int64(15), h.Quantity)
}

func TestMomentum_ShortWindowIsNoOp(t *testing.T) {
	t.Parallel()

	s := NewMomentum(DefaultParams())
	flat := make([]float64, s.Warmup())
	for i := range flat {
		flat[i] = 100
	}

	// One bar short of the long return horizon: even a position deep in
	// loss is left alone.
	bars := mkBars(flat[1:])
	b := newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 100, 120, 5)
	b.price = 100
	err := s.Evaluate(context.Background(), b, input(bars))
	require.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Empty(t, b.intents)

	bars = mkBars(flat)
	b = newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 100, 120, 5)
	evaluate(t, s, b, bars)
	require.Len(t, b.intents, 1)
	assert.Equal(t, portfolio.Sell, b.intents[0].Side)
	assert.Equal(t, int64(100), b.intents[0].Quantity)
}

func TestSelectBand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		vol    float64
		name   string
		short  int
		factor float64
	}{
		{0.5, "high", 3, 0.7},
		{0.3, "medium", 5, 1},
		{0.25, "low", 8, 1},
		{0.1, "low", 8, 1.2},
		{math.NaN(), "low", 8, 1},
	}
	for _, tt := range tests {
		b := SelectBand(tt.vol)
		assert.Equal(t, tt.name, b.Name)
		assert.Equal(t, tt.short, b.Short)
		assert.Equal(t, tt.factor, b.VolatilityFactor)
	}
}

func TestTrendThresholds(t *testing.T) {
	t.Parallel()

	buy, sell := StrongTrend.Thresholds(false)
	assert.Equal(t, 10.0, buy)
	assert.Equal(t, -10.0, sell)

	buy, sell = Ranging.Thresholds(true)
	assert.InDelta(t, 26, buy, 1e-9)
	assert.InDelta(t, -14, sell, 1e-9)

	assert.Equal(t, 3, StrongTrend.MinHold())
	assert.Equal(t, 1, Ranging.MinHold())
	assert.Equal(t, 2, WeakTrend.MinHold())
}

// uptrendBars rise 1% a day with a 1% intraday range and alternating
// volume.
func uptrendBars() []market.Bar {
	bars := mkBars(geometric(60, 100, 1.01))
	for i := range bars {
		c := bars[i].Close
		bars[i].High, bars[i].Low = c*1.01, c*0.99
		if i%2 == 1 {
			bars[i].Volume = 1500
		}
	}
	return bars
}

func TestAdaptive_StrongUptrendBuys(t *testing.T) {
	t.Parallel()

	s := NewAdaptive()
	bars := uptrendBars()
	a, err := s.Assess(input(bars))
	require.NoError(t, err)
	assert.Equal(t, StrongTrend, a.Trend)
	assert.True(t, a.Uptrend)
	assert.Equal(t, "low", a.Band.Name)
	assert.Greater(t, a.Score, 10.0)

	b := newTestBook(100000)
	evaluate(t, s, b, bars)

	// the risk-based size exceeds the cap, so 35% of cash is used
	require.Len(t, b.intents, 1)
	assert.Equal(t, portfolio.Buy, b.intents[0].Side)
	assert.Equal(t, int64(35000/a.Price), b.intents[0].Quantity)
	assert.Equal(t, a.Size(100000), b.intents[0].Quantity)
}

func TestAdaptive_CooldownAfterSell(t *testing.T) {
	t.Parallel()

	bars := uptrendBars()
	b := newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 10, 100, 0)
	_, err := b.Execute(portfolio.Order{
		Side: portfolio.Sell, Symbol: "SYM", Quantity: 10,
		Price: decimal.NewFromInt(170), Time: b.asOf,
	})
	require.NoError(t, err)

	evaluate(t, NewAdaptive(), b, bars)
	assert.Empty(t, b.intents)
}

func TestAdaptive_PartialThenFullExit(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 2*math.Sin(float64(i)/3)
	}
	bars := mkBars(closes)

	b := newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 100, 80, 10)
	evaluate(t, NewAdaptive(), b, bars)

	// Both profit levels are past: half the position goes first, then the
	// full-target check sells what is left.
	require.Len(t, b.intents, 2)
	assert.Equal(t, portfolio.Sell, b.intents[0].Side)
	assert.Equal(t, int64(50), b.intents[0].Quantity)
	assert.Equal(t, portfolio.Sell, b.intents[1].Side)
	assert.Equal(t, int64(50), b.intents[1].Quantity)

	_, held := b.Holding("SYM")
	assert.False(t, held)
	assert.Zero(t, b.rejected)
}

func TestAdaptive_NoSellBeforeMinimumHold(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 2*math.Sin(float64(i)/3)
	}
	bars := mkBars(closes)

	b := newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 100, 80, 1)
	evaluate(t, NewAdaptive(), b, bars)
	assert.Empty(t, b.intents)
}

func TestAdaptive_StopLossExit(t *testing.T) {
	t.Parallel()

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 2*math.Sin(float64(i)/3)
	}
	bars := mkBars(closes)

	b := newTestBook(100000)
	b.asOf = bars[len(bars)-1].Date
	b.seed(t, "SYM", 100, 120, 10)
	evaluate(t, NewAdaptive(), b, bars)

	require.Len(t, b.intents, 1)
	assert.Equal(t, portfolio.Sell, b.intents[0].Side)
	assert.Equal(t, int64(100), b.intents[0].Quantity)
	assert.Contains(t, b.intents[0].Reason, "beyond stop")
	_, held := b.Holding("SYM")
	assert.False(t, held)
}

// flatCloses is n closes at 100.
func flatCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
	}
	return out
}

// baseAssessment is a quiet ranging day at 100 in the low band.
func baseAssessment() Assessment {
	band := lowVolatility
	band.VolatilityFactor = 1
	return Assessment{Band: band, Trend: Ranging, Price: 100, ATR: 2, PercentB: 0.5}
}

// act runs one adaptive decision on a hand-built assessment. held > 0
// seeds a position at 100 bought heldDays ago.
func act(t *testing.T, closes []float64, a Assessment, held int64, heldDays int) *testBook {
	t.Helper()
	in := input(mkBars(closes))
	b := newTestBook(100000)
	b.asOf = in.AsOf
	if held > 0 {
		b.seed(t, "SYM", held, 100, heldDays)
	}
	b.price = a.Price
	require.NoError(t, NewAdaptive().act(context.Background(), b, in, a))
	return b
}

func TestAdaptive_Entries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		setup  func(a *Assessment)
		reason string
	}{
		{"strong uptrend", func(a *Assessment) { a.Trend, a.Uptrend, a.Score = StrongTrend, true, 12 }, "strong uptrend"},
		{"transition raises the bar", func(a *Assessment) {
			a.Trend, a.Uptrend, a.Score, a.Transition = StrongTrend, true, 12, true
		}, ""},
		{"weak uptrend", func(a *Assessment) { a.Trend, a.Uptrend, a.Score = WeakTrend, true, 16 }, "weak uptrend"},
		{"range low", func(a *Assessment) { a.Score, a.PercentB = 25, 0.3 }, "range low"},
		{"range middle", func(a *Assessment) { a.Score = 25 }, ""},
		{"rsi oversold", func(a *Assessment) { a.RSIOversoldTurning = true }, "rsi oversold turning up"},
		{"band bounce", func(a *Assessment) { a.LowerBandBounce = true }, "lower band bounce"},
		{"volume spike", func(a *Assessment) { a.VolumeSpike = true }, "volume spike"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := baseAssessment()
			tt.setup(&a)
			b := act(t, flatCloses(40), a, 0, 0)

			if tt.reason == "" {
				assert.Empty(t, b.intents)
				return
			}
			require.Len(t, b.intents, 1)
			in := b.intents[0]
			assert.Equal(t, portfolio.Buy, in.Side)
			assert.False(t, in.Live)
			assert.Equal(t, a.Size(100000), in.Quantity)
			assert.Equal(t, int64(350), in.Quantity)
			assert.Contains(t, in.Reason, tt.reason)
		})
	}
}

func TestAdaptive_SignalExits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		setup    func(a *Assessment)
		heldDays int
		reason   string
	}{
		{"rsi overbought", func(a *Assessment) { a.RSIOverboughtTurning = true }, 5, "rsi overbought turning down"},
		{"upper band", func(a *Assessment) { a.UpperBandTurning = true }, 5, "upper band turning down"},
		{"range high", func(a *Assessment) { a.Score, a.PercentB = -25, 0.7 }, 5, "range high"},
		{"downtrend in transition", func(a *Assessment) {
			a.Trend, a.Downtrend, a.Score, a.Transition = StrongTrend, true, -8, true
		}, 5, "strong downtrend"},
		{"steady downtrend above threshold", func(a *Assessment) {
			a.Trend, a.Downtrend, a.Score = StrongTrend, true, -8
		}, 5, ""},
		{"inside minimum hold", func(a *Assessment) {
			a.Trend, a.Downtrend, a.Score, a.Transition = StrongTrend, true, -8, true
			a.RSIOverboughtTurning = true
		}, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := baseAssessment()
			tt.setup(&a)
			b := act(t, flatCloses(40), a, 100, tt.heldDays)

			if tt.reason == "" {
				assert.Empty(t, b.intents)
				return
			}
			require.Len(t, b.intents, 1)
			in := b.intents[0]
			assert.Equal(t, portfolio.Sell, in.Side)
			assert.False(t, in.Live)
			assert.Equal(t, int64(100), in.Quantity)
			assert.Contains(t, in.Reason, tt.reason)
		})
	}
}

func TestAdaptive_ExitOverlay(t *testing.T) {
	t.Parallel()

	// 40 weekday bars end on Friday 2024-02-23; a buy five days earlier
	// covers the last three bars.
	closesWith := func(tail ...float64) []float64 {
		return append(flatCloses(40-len(tail)), tail...)
	}

	tests := []struct {
		name   string
		closes []float64
		price  float64
		qty    []int64
		reason string
	}{
		{"stop loss", flatCloses(40), 94, []int64{100}, "beyond stop"},
		{"partial profit", flatCloses(40), 105.5, []int64{50}, "of target"},
		{"partial then take profit", flatCloses(40), 108, []int64{50, 50}, "above target"},
		{"trailing stop off the peak", closesWith(110, 107, 104), 104, []int64{100}, "trailing stop"},
		{"steady gain keeps the position", closesWith(104, 104, 104), 104, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := baseAssessment()
			a.Price = tt.price
			b := act(t, tt.closes, a, 100, 5)

			var qty []int64
			for _, in := range b.intents {
				assert.Equal(t, portfolio.Sell, in.Side)
				assert.False(t, in.Live)
				qty = append(qty, in.Quantity)
			}
			assert.Equal(t, tt.qty, qty)
			if tt.reason != "" {
				assert.Contains(t, b.intents[len(b.intents)-1].Reason, tt.reason)
			}
		})
	}
}

func TestDaysSince(t *testing.T) {
	t.Parallel()

	b := newTestBook(1000)
	b.asOf = time.Date(2024, 3, 8, 9, 15, 0, 0, time.UTC)
	b.seed(t, "SYM", 1, 10, 4)

	d, ok := daysSince(b, "SYM", portfolio.Buy, b.asOf)
	require.True(t, ok)
	assert.Equal(t, 4, d)

	_, ok = daysSince(b, "SYM", portfolio.Sell, b.asOf)
	assert.False(t, ok)
}

func TestSignalString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "HOLD", Hold.String())
}
