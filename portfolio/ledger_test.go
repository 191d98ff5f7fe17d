package portfolio

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func buy(sym string, qty int64, px string) Order {
	return Order{Side: Buy, Symbol: sym, Quantity: qty, Price: d(px), Time: day0}
}

func sell(sym string, qty int64, px string) Order {
	return Order{Side: Sell, Symbol: sym, Quantity: qty, Price: d(px), Time: day0.AddDate(0, 0, 1)}
}

func TestBuyThenBuyAverages(t *testing.T) {
	t.Parallel()

	l := New("test", d("20000"))

	_, err := l.Execute(buy("SYM", 10, "100"))
	require.NoError(t, err)
	assertDecimal(t, "19000", l.Cash())
	h, ok := l.Holding("SYM")
	require.True(t, ok)
	assert.Equal(t, int64(10), h.Quantity)
	assertDecimal(t, "100", h.AvgPrice)

	_, err = l.Execute(buy("SYM", 10, "200"))
	require.NoError(t, err)
	h, _ = l.Holding("SYM")
	assert.Equal(t, int64(20), h.Quantity)
	assertDecimal(t, "150", h.AvgPrice)
	assertDecimal(t, "17000", l.Cash())
}

func TestSellRealisesPL(t *testing.T) {
	t.Parallel()

	l := New("test", d("20000"))
	_, err := l.Execute(buy("SYM", 10, "100"))
	require.NoError(t, err)
	_, err = l.Execute(buy("SYM", 10, "200"))
	require.NoError(t, err)

	tx, err := l.Execute(sell("SYM", 20, "180"))
	require.NoError(t, err)
	require.NotNil(t, tx.PL)
	assertDecimal(t, "600", *tx.PL)

	_, ok := l.Holding("SYM")
	assert.False(t, ok)
	assertDecimal(t, "20600", l.Cash())
	assert.Len(t, l.Transactions(), 3)
}

func TestPartialSellKeepsAverage(t *testing.T) {
	t.Parallel()

	l := New("test", d("10000"))
	_, err := l.Execute(buy("SYM", 10, "50"))
	require.NoError(t, err)
	_, err = l.Execute(sell("SYM", 4, "60"))
	require.NoError(t, err)

	h, ok := l.Holding("SYM")
	require.True(t, ok)
	assert.Equal(t, int64(6), h.Quantity)
	assertDecimal(t, "50", h.AvgPrice)
	assertDecimal(t, "300", h.Cost)
}

func TestRejectionsHaveNoEffect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		order Order
		err   error
	}{
		{"sell not held", sell("ABC", 1, "10"), ErrNotHeld},
		{"oversell", sell("SYM", 11, "10"), ErrInsufficientShares},
		{"overdraw", buy("SYM", 1000, "10"), ErrInsufficientCash},
		{"zero quantity", buy("SYM", 0, "10"), ErrInvalidOrder},
		{"zero price", buy("SYM", 1, "0"), ErrInvalidOrder},
		{"bad side", Order{Side: "HOLD", Symbol: "SYM", Quantity: 1, Price: d("1")}, ErrInvalidOrder},
		{"no symbol", buy("", 1, "10"), ErrInvalidOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := New("test", d("1000"))
			_, err := l.Execute(buy("SYM", 10, "10"))
			require.NoError(t, err)
			before := l.Snapshot()

			_, err = l.Execute(tt.order)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, ErrInvariantViolation)

			after := l.Snapshot()
			assert.Equal(t, before, after)
		})
	}
}

func TestBuyExactCashAllowed(t *testing.T) {
	t.Parallel()

	l := New("test", d("1000"))
	_, err := l.Execute(buy("SYM", 10, "100"))
	require.NoError(t, err)
	assert.True(t, l.Cash().IsZero())
}

func TestAverageIndependentOfBuyOrder(t *testing.T) {
	t.Parallel()

	orders := []Order{buy("S", 10, "100"), buy("S", 3, "101"), buy("S", 7, "99.5")}
	perms := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, p := range perms {
		l := New("perm", d("100000"))
		for _, i := range p {
			_, err := l.Execute(orders[i])
			require.NoError(t, err)
		}
		h, _ := l.Holding("S")
		// (1000 + 303 + 696.5) / 20
		assertDecimal(t, "99.975", h.AvgPrice)
	}
}

func TestRandomSequencesKeepInvariants(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(42))
	syms := []string{"A", "B", "C"}
	l := New("fuzz", d("5000"))

	for i := 0; i < 2000; i++ {
		o := Order{
			Symbol:   syms[r.Intn(len(syms))],
			Quantity: int64(r.Intn(20)),
			Price:    decimal.NewFromFloat(1 + r.Float64()*200).Round(2),
			Time:     day0.Add(time.Duration(i) * time.Hour),
			Side:     Buy,
		}
		if r.Intn(2) == 0 {
			o.Side = Sell
		}
		held, _ := l.Holding(o.Symbol)
		_, err := l.Execute(o)
		if err == nil && o.Side == Sell {
			assert.LessOrEqual(t, o.Quantity, held.Quantity)
		}

		require.False(t, l.Cash().IsNegative())
		for sym, h := range l.Holdings() {
			require.Positivef(t, h.Quantity, "holding %s", sym)
		}
	}
}

func TestLastTradeIndex(t *testing.T) {
	t.Parallel()

	l := New("idx", d("10000"))
	_, ok := l.LastTrade("SYM", Buy)
	assert.False(t, ok)

	_, err := l.Execute(buy("SYM", 5, "10"))
	require.NoError(t, err)
	later := buy("SYM", 5, "11")
	later.Time = day0.AddDate(0, 0, 3)
	_, err = l.Execute(later)
	require.NoError(t, err)
	_, err = l.Execute(sell("SYM", 2, "12"))
	require.NoError(t, err)

	got, ok := l.LastTrade("SYM", Buy)
	require.True(t, ok)
	assert.Equal(t, later.Time, got)
	got, ok = l.LastTrade("SYM", Sell)
	require.True(t, ok)
	assert.Equal(t, day0.AddDate(0, 0, 1), got)
}

func TestPriceHistoryOrderedAndUnique(t *testing.T) {
	t.Parallel()

	var h PriceHistory
	h.Set(day0.AddDate(0, 0, 2), d("3"))
	h.Set(day0, d("1"))
	h.Set(day0.AddDate(0, 0, 1), d("2"))
	h.Set(day0, d("1.5"))

	pts := h.Points()
	require.Len(t, pts, 3)
	assert.True(t, pts[0].Date.Equal(day0))
	assertDecimal(t, "1.5", pts[0].Close)
	last, ok := h.Last()
	require.True(t, ok)
	assertDecimal(t, "3", last.Close)
}

func TestValue(t *testing.T) {
	t.Parallel()

	l := New("v", d("1000"))
	_, err := l.Execute(buy("A", 2, "100"))
	require.NoError(t, err)
	_, err = l.Execute(buy("B", 1, "50"))
	require.NoError(t, err)

	v := l.Value(func(sym string) (decimal.Decimal, bool) {
		if sym == "A" {
			return d("120"), true
		}
		return decimal.Zero, false
	})
	// 750 cash + 240 + B at cost 50
	assertDecimal(t, "1040", v)
}

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	l := New("round", d("20000"))
	_, err := l.Execute(buy("SYM", 10, "100"))
	require.NoError(t, err)
	_, err = l.Execute(buy("SYM", 7, "133.33"))
	require.NoError(t, err)
	_, err = l.Execute(sell("SYM", 3, "140"))
	require.NoError(t, err)
	l.Prices().Set(day0, d("100"))
	l.Prices().Set(day0.AddDate(0, 0, 1), d("140"))
	l.SetReturn(d("0.0123"))

	data, err := json.Marshal(l)
	require.NoError(t, err)

	var back Ledger
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, l.Name, back.Name)
	assertDecimal(t, l.Cash().String(), back.Cash())

	h1, _ := l.Holding("SYM")
	h2, ok := back.Holding("SYM")
	require.True(t, ok)
	assert.Equal(t, h1.Quantity, h2.Quantity)
	assertDecimal(t, h1.AvgPrice.String(), h2.AvgPrice)

	tx1, tx2 := l.Transactions(), back.Transactions()
	require.Len(t, tx2, len(tx1))
	for i := range tx1 {
		assert.Equal(t, tx1[i].Side, tx2[i].Side)
		assert.Equal(t, tx1[i].Quantity, tx2[i].Quantity)
		assert.True(t, tx1[i].Time.Equal(tx2[i].Time))
		assertDecimal(t, tx1[i].Price.String(), tx2[i].Price)
		assert.Equal(t, tx1[i].PL == nil, tx2[i].PL == nil)
	}

	p1, p2 := l.Prices().Points(), back.Prices().Points()
	require.Len(t, p2, len(p1))
	for i := range p1 {
		assert.True(t, p1[i].Date.Equal(p2[i].Date))
		assertDecimal(t, p1[i].Close.String(), p2[i].Close)
	}

	r, ok := back.Return()
	require.True(t, ok)
	assertDecimal(t, "0.0123", r)

	// the last-trade index is rebuilt on load
	ts, ok := back.LastTrade("SYM", Sell)
	require.True(t, ok)
	assert.True(t, ts.Equal(day0.AddDate(0, 0, 1)))

	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestRestoreRejectsBrokenSnapshots(t *testing.T) {
	t.Parallel()

	_, err := Restore(Snapshot{Cash: d("-1")})
	assert.ErrorIs(t, err, ErrInvariantViolation)

	_, err = Restore(Snapshot{Cash: d("1"), Holdings: map[string]Holding{"X": {Quantity: 0}}})
	assert.ErrorIs(t, err, ErrInvariantViolation)

	_, err = Restore(Snapshot{Cash: d("1"), PriceHistory: []PricePoint{{Date: day0}, {Date: day0}}})
	assert.ErrorIs(t, err, ErrInvariantViolation)
}
