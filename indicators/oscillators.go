package indicators

import "math"

// RSI is the relative strength index over n days using simple rolling
// means of gains and losses. A window without losses reads 100. The first
// day has no delta and counts as flat.
func RSI(close []float64, n int) Series {
	gains := make([]float64, len(close))
	losses := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		d := close[i] - close[i-1]
		switch {
		case d > 0:
			gains[i] = d
		case d < 0:
			losses[i] = -d
		}
	}

	avgGain, avgLoss := SMA(gains, n), SMA(losses, n)
	out := nans(len(close))
	for i := range out {
		g, l := avgGain[i], avgLoss[i]
		if math.IsNaN(g) || math.IsNaN(l) {
			continue
		}
		if l == 0 {
			out[i] = 100
			continue
		}
		out[i] = 100 - 100/(1+g/l)
	}
	return out
}

// StochasticResult holds the fast %K line and its %D average.
type StochasticResult struct {
	K Series
	D Series
}

// Stochastic computes %K over n days and %D as the d-day mean of %K. A flat
// window (high == low) leaves %K undefined.
func Stochastic(high, low, close []float64, n, d int) StochasticResult {
	hi, lo := RollingMax(high, n), RollingMin(low, n)
	k := nans(len(close))
	for i := range close {
		rng := hi[i] - lo[i]
		if math.IsNaN(rng) || rng == 0 {
			continue
		}
		k[i] = (close[i] - lo[i]) * 100 / rng
	}
	return StochasticResult{K: k, D: SMA(k, d)}
}
