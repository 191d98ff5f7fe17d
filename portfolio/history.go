package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is the close recorded for one simulated day.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// PriceHistory is a date-ordered series with at most one point per date.
type PriceHistory struct {
	points []PricePoint
}

// Set records close for date, replacing any existing point on that date.
func (h *PriceHistory) Set(date time.Time, close decimal.Decimal) {
	i := sort.Search(len(h.points), func(i int) bool { return !h.points[i].Date.Before(date) })
	if i < len(h.points) && h.points[i].Date.Equal(date) {
		h.points[i].Close = close
		return
	}
	h.points = append(h.points, PricePoint{})
	copy(h.points[i+1:], h.points[i:])
	h.points[i] = PricePoint{Date: date, Close: close}
}

// Points returns a copy of the history in date order.
func (h *PriceHistory) Points() []PricePoint {
	return append([]PricePoint(nil), h.points...)
}

func (h *PriceHistory) Len() int { return len(h.points) }

// Reset drops every point.
func (h *PriceHistory) Reset() { h.points = nil }

// Last returns the most recent point.
func (h *PriceHistory) Last() (PricePoint, bool) {
	if len(h.points) == 0 {
		return PricePoint{}, false
	}
	return h.points[len(h.points)-1], true
}
