package strategies

import (
	"context"
	"math"

	"github.com/rustyeddy/quarks/portfolio"
)

const BuyAndHoldName = "buy-and-hold"

// BuyAndHold buys once on the first evaluated day and never trades again.
type BuyAndHold struct {
	// Investment is the cash committed to the single buy. Zero commits all
	// cash on hand.
	Investment float64
}

func NewBuyAndHold(p Params) *BuyAndHold {
	return &BuyAndHold{Investment: p.InitialInvestment}
}

func (s *BuyAndHold) Name() string { return BuyAndHoldName }
func (s *BuyAndHold) Warmup() int  { return 1 }

func (s *BuyAndHold) Evaluate(ctx context.Context, b Book, in Input) error {
	if err := needBars(in, 1); err != nil {
		return err
	}
	if _, bought := b.LastTrade(in.Symbol, portfolio.Buy); bought {
		return nil
	}

	price := in.Close()
	if price <= 0 {
		return nil
	}
	invest := s.Investment
	if invest <= 0 {
		invest = cash(b)
	}
	qty := int64(math.Floor(invest / price))
	if qty < 1 {
		return nil
	}
	return buy(ctx, b, in.Symbol, qty, "initial buy")
}
