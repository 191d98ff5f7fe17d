package risk

import "math"

// FractionOfCash sizes a buy that spends fraction of cash at price. At
// least one share is always returned; the executor rejects the buy if one
// share is unaffordable.
func FractionOfCash(cash, fraction, price float64) int64 {
	if price <= 0 {
		return 1
	}
	return max(1, int64(cash*fraction/price))
}

// Half is the share count for a half-position exit, never below one.
func Half(qty int64) int64 { return max(1, qty/2) }

// Third is the share count for a one-third exit, never below one.
func Third(qty int64) int64 { return max(1, qty/3) }

type Inputs struct {
	Cash       float64
	RiskPct    float64 // 0.03
	EntryPrice float64
	StopPrice  float64
	MaxPct     float64 // cap on position value as a share of cash, 0.35
}

type Result struct {
	Shares        int64
	RiskPerShare  float64
	RiskAmount    float64
	PositionValue float64
}

// Calculate sizes a position so that hitting the stop loses RiskPct of
// cash, capped at MaxPct of cash. A stop at or above entry means the risk
// per share is unknown and the cap alone applies.
func Calculate(in Inputs) Result {
	riskAmt := in.Cash * in.RiskPct
	perShare := in.EntryPrice - in.StopPrice
	maxValue := in.Cash * in.MaxPct

	value := maxValue
	if perShare > 0 && !math.IsNaN(perShare) {
		value = math.Min(riskAmt/perShare*in.EntryPrice, maxValue)
	}

	shares := int64(1)
	if in.EntryPrice > 0 {
		shares = max(1, int64(value/in.EntryPrice))
	}
	return Result{
		Shares:        shares,
		RiskPerShare:  perShare,
		RiskAmount:    riskAmt,
		PositionValue: value,
	}
}
