package risk

// ProfitPct is the unrealised return of a position bought at avg.
func ProfitPct(avg, price float64) float64 {
	if avg == 0 {
		return 0
	}
	return (price - avg) / avg
}

// Clamp bounds x to [lo, hi]. NaN clamps to lo.
func Clamp(x, lo, hi float64) float64 {
	switch {
	case x > hi:
		return hi
	case x >= lo:
		return x
	}
	return lo
}

// ScaledTargets widens a base profit target and stop loss by volatility,
// keeping at least the given floors. The stop is returned as a negative
// return. An undefined volatility leaves the floors in place.
func ScaledTargets(vol, target, targetFloor, stop, stopFloor float64) (float64, float64) {
	t, s := targetFloor, -stopFloor
	if v := target * (1 + vol); v > t {
		t = v
	}
	if v := -stop * (1 + vol); v < s {
		s = v
	}
	return t, s
}
