package indicators

import "math"

// NeutralADX stands in for ADX values that lack history.
const NeutralADX = 20.0

// ADXResult holds the directional indicators and the trend strength index.
type ADXResult struct {
	Plus  Series // +DI
	Minus Series // -DI
	DX    Series
	ADX   Series
}

// ADX computes the average directional index over n days using rolling
// sums of directional movement and true range. Undefined ADX values are
// filled with NeutralADX so a short window reads as a weak trend; the
// result is clamped to [0, 100].
func ADX(high, low, close []float64, n int) ADXResult {
	size := len(close)
	plusDM := make([]float64, size)
	minusDM := make([]float64, size)
	for i := 1; i < size; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	trSum := RollingSum(TrueRange(high, low, close), n)
	plusSum, minusSum := RollingSum(plusDM, n), RollingSum(minusDM, n)

	r := ADXResult{Plus: nans(size), Minus: nans(size), DX: nans(size)}
	for i := 0; i < size; i++ {
		if math.IsNaN(trSum[i]) || trSum[i] == 0 {
			continue
		}
		r.Plus[i] = 100 * plusSum[i] / trSum[i]
		r.Minus[i] = 100 * minusSum[i] / trSum[i]
		if total := r.Plus[i] + r.Minus[i]; total != 0 {
			r.DX[i] = 100 * math.Abs(r.Plus[i]-r.Minus[i]) / total
		}
	}

	r.ADX = SMA(r.DX, n)
	for i, v := range r.ADX {
		if math.IsNaN(v) {
			r.ADX[i] = NeutralADX
			continue
		}
		r.ADX[i] = math.Max(0, math.Min(100, v))
	}
	return r
}
