package risk

import "fmt"

// Exit is one triggered exit rule. Fraction is 1 for a full exit and 0.5
// for a half exit.
type Exit struct {
	Code     string
	Msg      string
	Fraction float64
}

// Full reports whether the exit closes the whole position.
func (e Exit) Full() bool { return e.Fraction >= 1 }

type ExitDecision struct {
	Profit float64
	Exits  []Exit
}

func (d *ExitDecision) add(code string, fraction float64, msg string) {
	d.Exits = append(d.Exits, Exit{Code: code, Msg: msg, Fraction: fraction})
}

// Trail returns the share of the current gain the trailing stop keeps.
func (p ExitPolicy) Trail(profit float64) float64 {
	return Clamp(p.TrailMax-p.TrailDecay*profit, p.TrailMin, p.TrailMax)
}

// EvaluateExits lists every exit rule that fires for pos, in the order
// they should be applied. Callers apply them one after another against the
// position that remains, so a half exit followed by a full exit closes the
// rest.
func EvaluateExits(p ExitPolicy, pos Position) ExitDecision {
	d := ExitDecision{Profit: ProfitPct(pos.AvgPrice, pos.Price)}
	if pos.AvgPrice <= 0 {
		return d
	}

	if p.PartialAt > 0 && d.Profit > p.PartialAt*p.TakeProfit {
		d.add("PARTIAL_PROFIT", 0.5,
			fmt.Sprintf("profit %.2f%% above %.0f%% of target", 100*d.Profit, 100*p.PartialAt))
	}
	if d.Profit > p.TakeProfit {
		d.add("TAKE_PROFIT", 1,
			fmt.Sprintf("profit %.2f%% above target %.2f%%", 100*d.Profit, 100*p.TakeProfit))
	}
	if d.Profit < -p.StopLoss {
		d.add("STOP_LOSS", 1,
			fmt.Sprintf("loss %.2f%% beyond stop %.2f%%", 100*d.Profit, 100*p.StopLoss))
	}
	// The trailing stop arms on the best gain since entry and keeps a share
	// of it that shrinks as that gain grows.
	peak := max(pos.Peak, pos.Price)
	if best := ProfitPct(pos.AvgPrice, peak); p.TrailTrigger > 0 && best > p.TrailTrigger {
		stop := pos.AvgPrice * (1 + best*p.Trail(best))
		if pos.Price < stop {
			d.add("TRAILING_STOP", 1,
				fmt.Sprintf("price %.2f below trailing stop %.2f (peak %.2f)", pos.Price, stop, peak))
		}
	}
	return d
}
