package indicators

import "math"

// SMA is the simple moving average over n values.
func SMA(x []float64, n int) Series { return rolling(x, n, mean) }

// EMA is the exponential moving average with span n (alpha = 2/(n+1)). It
// is seeded with the first defined value and defined from there on, so
// short series still produce a value. Leading NaNs are carried through.
func EMA(x []float64, n int) Series {
	out := nans(len(x))
	if n <= 0 {
		return out
	}
	alpha := 2.0 / float64(n+1)

	ema, seeded := 0.0, false
	for i, v := range x {
		if math.IsNaN(v) {
			if seeded {
				out[i] = ema
			}
			continue
		}
		if !seeded {
			ema, seeded = v, true
		} else {
			ema = alpha*v + (1-alpha)*ema
		}
		out[i] = ema
	}
	return out
}

// MACDResult holds the MACD line, its signal line and their difference.
type MACDResult struct {
	Line   Series
	Signal Series
	Hist   Series
}

// MACD is EMA(short) - EMA(long) with an EMA(signal) trigger line.
func MACD(x []float64, short, long, signal int) MACDResult {
	fast, slow := EMA(x, short), EMA(x, long)
	line := make(Series, len(x))
	for i := range x {
		line[i] = fast[i] - slow[i]
	}
	sig := EMA(line, signal)
	hist := make(Series, len(x))
	for i := range x {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Hist: hist}
}
