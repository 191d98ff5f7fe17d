package indicators

import "math"

// OBV is on-balance volume: the running sum of volume signed by the
// direction of the close. Flat days and the first day add nothing.
func OBV(close, volume []float64) Series {
	out := make(Series, len(close))
	total := 0.0
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			total += volume[i]
		case close[i] < close[i-1]:
			total -= volume[i]
		}
		out[i] = total
	}
	return out
}

// Ratio divides x by y element-wise. Division by zero is undefined.
func Ratio(x, y []float64) Series {
	out := nans(len(x))
	for i := range x {
		if i < len(y) && y[i] != 0 && !math.IsNaN(y[i]) {
			out[i] = x[i] / y[i]
		}
	}
	return out
}

// VolumeRatio compares each day's volume with its n-day mean.
func VolumeRatio(volume []float64, n int) Series {
	return Ratio(volume, SMA(volume, n))
}
