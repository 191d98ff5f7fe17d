// Package portfolio holds the cash, holdings and transaction log of one
// simulated account. A Ledger is owned by a single run and is not safe for
// concurrent use.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvariantViolation is the root of every rejected order. A rejected
	// order has no effect on the ledger.
	ErrInvariantViolation = errors.New("portfolio: invariant violation")

	ErrInvalidOrder       = fmt.Errorf("%w: invalid order", ErrInvariantViolation)
	ErrInsufficientCash   = fmt.Errorf("%w: insufficient cash", ErrInvariantViolation)
	ErrNotHeld            = fmt.Errorf("%w: symbol not held", ErrInvariantViolation)
	ErrInsufficientShares = fmt.Errorf("%w: insufficient shares", ErrInvariantViolation)
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Valid() bool { return s == Buy || s == Sell }

// Holding is an open position. Quantity is always positive; a holding that
// reaches zero is removed. Cost is the exact cash basis of the open
// quantity, so AvgPrice stays the true weighted average however the buys
// are ordered.
type Holding struct {
	Quantity int64           `json:"quantity"`
	AvgPrice decimal.Decimal `json:"avg_price"`
	Cost     decimal.Decimal `json:"cost"`
}

// Transaction is one accepted trade. PL is set on sells only.
type Transaction struct {
	Side     Side             `json:"type"`
	Symbol   string           `json:"symbol"`
	Quantity int64            `json:"quantity"`
	Price    decimal.Decimal  `json:"price"`
	Time     time.Time        `json:"date"`
	PL       *decimal.Decimal `json:"profit_loss,omitempty"`
	Reason   string           `json:"reason,omitempty"`
}

// Amount is price times quantity.
func (t Transaction) Amount() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

type tradeKey struct {
	symbol string
	side   Side
}

// Ledger is the state of one portfolio: cash, open holdings, the
// append-only transaction log and the closes observed while simulating.
type Ledger struct {
	Name string

	cash         decimal.Decimal
	holdings     map[string]Holding
	transactions []Transaction
	prices       PriceHistory
	realized     *decimal.Decimal

	// last trade time per (symbol, side), derived from transactions
	last map[tradeKey]time.Time
}

// New creates a ledger seeded with cash.
func New(name string, cash decimal.Decimal) *Ledger {
	return &Ledger{
		Name:     name,
		cash:     cash,
		holdings: make(map[string]Holding),
		last:     make(map[tradeKey]time.Time),
	}
}

func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// Holding returns the open position in symbol.
func (l *Ledger) Holding(symbol string) (Holding, bool) {
	h, ok := l.holdings[symbol]
	return h, ok
}

// Holdings returns a copy of all open positions.
func (l *Ledger) Holdings() map[string]Holding {
	out := make(map[string]Holding, len(l.holdings))
	for k, v := range l.holdings {
		out[k] = v
	}
	return out
}

// Symbols lists held symbols in sorted order.
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.holdings))
	for s := range l.holdings {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Transactions returns a copy of the log in insertion order.
func (l *Ledger) Transactions() []Transaction {
	return append([]Transaction(nil), l.transactions...)
}

// LastTrade returns the time of the most recent transaction of side in
// symbol.
func (l *Ledger) LastTrade(symbol string, side Side) (time.Time, bool) {
	t, ok := l.last[tradeKey{symbol, side}]
	return t, ok
}

// Prices is the ordered close history recorded during a run.
func (l *Ledger) Prices() *PriceHistory { return &l.prices }

// Return is the realised return of the last completed run, if any.
func (l *Ledger) Return() (decimal.Decimal, bool) {
	if l.realized == nil {
		return decimal.Zero, false
	}
	return *l.realized, true
}

func (l *Ledger) SetReturn(r decimal.Decimal) { l.realized = &r }

// Value is cash plus every holding marked at price. Holdings without a
// price are valued at their average cost.
func (l *Ledger) Value(price func(symbol string) (decimal.Decimal, bool)) decimal.Decimal {
	total := l.cash
	for sym, h := range l.holdings {
		px, ok := price(sym)
		if !ok {
			px = h.AvgPrice
		}
		total = total.Add(px.Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total
}

func (l *Ledger) rebuildIndex() {
	l.last = make(map[tradeKey]time.Time)
	for _, t := range l.transactions {
		l.last[tradeKey{t.Symbol, t.Side}] = t.Time
	}
}
