package backtest

import (
	"time"

	"github.com/rustyeddy/quarks/portfolio"
	"github.com/shopspring/decimal"
)

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Strategy string
	Symbol   string
	Start    time.Time
	End      time.Time

	InitialCash decimal.Decimal
	FinalValue  decimal.Decimal
	Return      decimal.Decimal

	Transactions []portfolio.Transaction
	PriceHistory []portfolio.PricePoint
	Ledger       *portfolio.Ledger

	Evaluations int // days the strategy was asked to decide
	SkippedDays int // weekdays without a bar
	Rejections  int // intents the book refused
}

// Stats summarises realised trading.
type Stats struct {
	Buys, Sells  int
	Wins, Losses int
	RealizedPL   decimal.Decimal
	WinRate      float64 // percent of closing trades with positive P/L
}

func (r *Result) Stats() Stats {
	var s Stats
	for _, tx := range r.Transactions {
		if tx.Side == portfolio.Buy {
			s.Buys++
			continue
		}
		s.Sells++
		if tx.PL == nil {
			continue
		}
		s.RealizedPL = s.RealizedPL.Add(*tx.PL)
		switch tx.PL.Sign() {
		case 1:
			s.Wins++
		case -1:
			s.Losses++
		}
	}
	if s.Sells > 0 {
		s.WinRate = 100 * float64(s.Wins) / float64(s.Sells)
	}
	return s
}
