package indicators

import "math"

// TradingDays annualises daily volatility.
const TradingDays = 252

// BollingerResult holds the bands plus the derived width and %B columns.
type BollingerResult struct {
	Middle   Series
	Upper    Series
	Lower    Series
	Width    Series // (upper - lower) / middle
	PercentB Series // (close - lower) / (upper - lower)
}

// Bollinger computes bands k sample standard deviations around an n-day
// SMA.
func Bollinger(close []float64, n int, k float64) BollingerResult {
	mid, sd := SMA(close, n), RollingStd(close, n)
	r := BollingerResult{
		Middle:   mid,
		Upper:    nans(len(close)),
		Lower:    nans(len(close)),
		Width:    nans(len(close)),
		PercentB: nans(len(close)),
	}
	for i := range close {
		if math.IsNaN(mid[i]) || math.IsNaN(sd[i]) {
			continue
		}
		r.Upper[i] = mid[i] + k*sd[i]
		r.Lower[i] = mid[i] - k*sd[i]
		if mid[i] != 0 {
			r.Width[i] = (r.Upper[i] - r.Lower[i]) / mid[i]
		}
		if band := r.Upper[i] - r.Lower[i]; band != 0 {
			r.PercentB[i] = (close[i] - r.Lower[i]) / band
		}
	}
	return r
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first
// bar has no previous close and uses high-low.
func TrueRange(high, low, close []float64) Series {
	out := make(Series, len(close))
	for i := range close {
		tr := high[i] - low[i]
		if i > 0 {
			tr = math.Max(tr, math.Abs(high[i]-close[i-1]))
			tr = math.Max(tr, math.Abs(low[i]-close[i-1]))
		}
		out[i] = tr
	}
	return out
}

// ATR is the n-day simple mean of the true range.
func ATR(high, low, close []float64, n int) Series {
	return SMA(TrueRange(high, low, close), n)
}

// AnnualizedVolatility is the n-day sample deviation of daily returns
// scaled by the square root of TradingDays.
func AnnualizedVolatility(close []float64, n int) Series {
	sd := RollingStd(PctChange(close, 1), n)
	scale := math.Sqrt(TradingDays)
	for i := range sd {
		sd[i] *= scale
	}
	return sd
}
