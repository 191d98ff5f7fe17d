package risk

// ExitPolicy holds the profit-taking and loss-cutting levels for an open
// position, all expressed as returns on the average price.
type ExitPolicy struct {
	TakeProfit float64 // full exit above this return
	StopLoss   float64 // full exit below -StopLoss
	PartialAt  float64 // fraction of TakeProfit that triggers a half exit

	// Trailing stop, armed once the return passes TrailTrigger. The stop
	// keeps a share of the gain that shrinks as the gain grows, bounded by
	// TrailMin and TrailMax.
	TrailTrigger float64
	TrailMin     float64
	TrailMax     float64
	TrailDecay   float64
}

// DefaultExitPolicy returns the adaptive strategy's exit shape for the
// given target and stop.
func DefaultExitPolicy(takeProfit, stopLoss float64) ExitPolicy {
	return ExitPolicy{
		TakeProfit:   takeProfit,
		StopLoss:     stopLoss,
		PartialAt:    0.7,
		TrailTrigger: 0.03,
		TrailMin:     0.5,
		TrailMax:     0.7,
		TrailDecay:   0.5,
	}
}

// Position is what the exit checks need to know about a holding. Peak is
// the highest price since entry; zero means Price.
type Position struct {
	AvgPrice float64
	Price    float64
	Peak     float64
}
