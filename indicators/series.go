// Package indicators derives technical indicators from daily price
// columns. Every function is a pure transform of its inputs: the result has
// the same length as the input, and positions without enough history hold
// NaN.
package indicators

import "math"

// Series is an indicator column aligned with the bars it was computed from.
type Series []float64

// Back returns the value n positions before the last one. Back(0) is the
// last value. Out-of-range positions are NaN.
func (s Series) Back(n int) float64 {
	i := len(s) - 1 - n
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Last returns the most recent value.
func (s Series) Last() float64 { return s.Back(0) }

// Prev returns the value before the most recent one.
func (s Series) Prev() float64 { return s.Back(1) }

// Defined reports whether the last n values are all defined.
func (s Series) Defined(n int) bool {
	if n <= 0 || len(s) < n {
		return false
	}
	for _, v := range s[len(s)-n:] {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Rising reports whether the last value is above the previous one.
func (s Series) Rising() bool { return s.Last() > s.Prev() }

// Falling reports whether the last value is below the previous one.
func (s Series) Falling() bool { return s.Last() < s.Prev() }

func nans(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Diff returns x[i] - x[i-1]. The first value is NaN.
func Diff(x []float64) Series {
	out := nans(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// PctChange returns x[i]/x[i-n] - 1.
func PctChange(x []float64, n int) Series {
	out := nans(len(x))
	if n <= 0 {
		return out
	}
	for i := n; i < len(x); i++ {
		out[i] = x[i]/x[i-n] - 1
	}
	return out
}

// rolling applies fn to every full window of n values. A window containing
// NaN yields NaN.
func rolling(x []float64, n int, fn func(w []float64) float64) Series {
	out := nans(len(x))
	if n <= 0 {
		return out
	}
	for i := n - 1; i < len(x); i++ {
		w := x[i-n+1 : i+1]
		ok := true
		for _, v := range w {
			if math.IsNaN(v) {
				ok = false
				break
			}
		}
		if ok {
			out[i] = fn(w)
		}
	}
	return out
}

func sum(w []float64) float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

func mean(w []float64) float64 { return sum(w) / float64(len(w)) }

// RollingSum is the sum over a trailing window of n values.
func RollingSum(x []float64, n int) Series { return rolling(x, n, sum) }

// RollingMin is the minimum over a trailing window of n values.
func RollingMin(x []float64, n int) Series {
	return rolling(x, n, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Min(m, v)
		}
		return m
	})
}

// RollingMax is the maximum over a trailing window of n values.
func RollingMax(x []float64, n int) Series {
	return rolling(x, n, func(w []float64) float64 {
		m := w[0]
		for _, v := range w[1:] {
			m = math.Max(m, v)
		}
		return m
	})
}

// RollingStd is the sample standard deviation (n-1 denominator) over a
// trailing window. Windows of one value are undefined.
func RollingStd(x []float64, n int) Series {
	if n < 2 {
		return nans(len(x))
	}
	return rolling(x, n, func(w []float64) float64 {
		m := mean(w)
		ss := 0.0
		for _, v := range w {
			ss += (v - m) * (v - m)
		}
		return math.Sqrt(ss / float64(len(w)-1))
	})
}
