package portfolio

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Snapshot is the complete, order-preserving serial form of a Ledger.
type Snapshot struct {
	Name         string             `json:"name"`
	Cash         decimal.Decimal    `json:"cash"`
	Holdings     map[string]Holding `json:"holdings"`
	Transactions []Transaction      `json:"transactions"`
	PriceHistory []PricePoint       `json:"price_history"`
	Return       *decimal.Decimal   `json:"realized_return,omitempty"`
}

func (l *Ledger) Snapshot() Snapshot {
	s := Snapshot{
		Name:         l.Name,
		Cash:         l.cash,
		Holdings:     l.Holdings(),
		Transactions: l.Transactions(),
		PriceHistory: l.prices.Points(),
	}
	if l.realized != nil {
		r := *l.realized
		s.Return = &r
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.PriceHistory == nil {
		s.PriceHistory = []PricePoint{}
	}
	return s
}

// Restore rebuilds a Ledger from a snapshot, checking the invariants a
// ledger maintains and rebuilding the last-trade index from the log.
func Restore(s Snapshot) (*Ledger, error) {
	if s.Cash.IsNegative() {
		return nil, fmt.Errorf("%w: negative cash %s", ErrInvariantViolation, s.Cash)
	}

	l := New(s.Name, s.Cash)
	for sym, h := range s.Holdings {
		if h.Quantity <= 0 {
			return nil, fmt.Errorf("%w: holding %s has quantity %d", ErrInvariantViolation, sym, h.Quantity)
		}
		if h.Cost.IsZero() {
			h.Cost = h.AvgPrice.Mul(decimal.NewFromInt(h.Quantity))
		}
		l.holdings[sym] = h
	}
	l.transactions = append([]Transaction(nil), s.Transactions...)

	for i, p := range s.PriceHistory {
		if i > 0 && !p.Date.After(s.PriceHistory[i-1].Date) {
			return nil, fmt.Errorf("%w: price history out of order at %s", ErrInvariantViolation, p.Date.Format("2006-01-02"))
		}
	}
	l.prices.points = append([]PricePoint(nil), s.PriceHistory...)

	if s.Return != nil {
		l.SetReturn(*s.Return)
	}
	l.rebuildIndex()
	return l, nil
}

func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Snapshot())
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	restored, err := Restore(s)
	if err != nil {
		return err
	}
	*l = *restored
	return nil
}
