package portfolio

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a priced trade intent ready to be applied.
type Order struct {
	Side     Side
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Time     time.Time
	Reason   string
}

// Execute applies o to the ledger. A buy needs enough cash; a sell needs an
// open holding of at least the requested quantity. A rejected order
// returns an error wrapping ErrInvariantViolation and leaves the ledger
// untouched.
func (l *Ledger) Execute(o Order) (Transaction, error) {
	if err := o.validate(); err != nil {
		return Transaction{}, err
	}
	if l.holdings == nil {
		l.holdings = make(map[string]Holding)
	}
	if l.last == nil {
		l.rebuildIndex()
	}

	qty := decimal.NewFromInt(o.Quantity)
	amount := o.Price.Mul(qty)

	tx := Transaction{
		Side:     o.Side,
		Symbol:   o.Symbol,
		Quantity: o.Quantity,
		Price:    o.Price,
		Time:     o.Time,
		Reason:   o.Reason,
	}

	switch o.Side {
	case Buy:
		if l.cash.LessThan(amount) {
			return Transaction{}, fmt.Errorf("%w: buy %d %s @ %s needs %s, have %s",
				ErrInsufficientCash, o.Quantity, o.Symbol, o.Price, amount.StringFixed(2), l.cash.StringFixed(2))
		}

		h := l.holdings[o.Symbol]
		h.Quantity += o.Quantity
		h.Cost = h.Cost.Add(amount)
		h.AvgPrice = h.Cost.Div(decimal.NewFromInt(h.Quantity))

		l.cash = l.cash.Sub(amount)
		l.holdings[o.Symbol] = h

	case Sell:
		h, ok := l.holdings[o.Symbol]
		if !ok {
			return Transaction{}, fmt.Errorf("%w: sell %d %s", ErrNotHeld, o.Quantity, o.Symbol)
		}
		if h.Quantity < o.Quantity {
			return Transaction{}, fmt.Errorf("%w: sell %d %s, hold %d",
				ErrInsufficientShares, o.Quantity, o.Symbol, h.Quantity)
		}

		pl := o.Price.Sub(h.AvgPrice).Mul(qty)
		tx.PL = &pl

		h.Quantity -= o.Quantity
		h.Cost = h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity))
		if h.Quantity == 0 {
			delete(l.holdings, o.Symbol)
		} else {
			l.holdings[o.Symbol] = h
		}
		l.cash = l.cash.Add(amount)
	}

	l.transactions = append(l.transactions, tx)
	l.last[tradeKey{o.Symbol, o.Side}] = o.Time
	return tx, nil
}

func (o Order) validate() error {
	switch {
	case !o.Side.Valid():
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, o.Side)
	case o.Symbol == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidOrder)
	case o.Quantity <= 0:
		return fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrder, o.Quantity)
	case !o.Price.IsPositive():
		return fmt.Errorf("%w: price must be positive, got %s", ErrInvalidOrder, o.Price)
	}
	return nil
}
