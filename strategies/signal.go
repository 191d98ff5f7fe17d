package strategies

type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Decision is a recommendation without a trade attached, as produced by
// the advice sheet.
type Decision struct {
	Signal Signal
	Reason string
}
