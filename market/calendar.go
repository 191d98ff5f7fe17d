package market

import "time"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsTradingDay reports whether t falls on a weekday. Exchange holidays are
// not modelled; a provider simply has no bar for them.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// CalendarSpan converts a count of trading bars into the number of
// calendar days needed to cover them, with slack for holidays.
func CalendarSpan(bars int) int {
	if bars <= 0 {
		return 0
	}
	return bars*7/5 + 10
}

// ParseDate accepts the date layouts found in exported price files. The
// calendar date is taken in the timestamp's own offset, so an exchange-local
// midnight such as 00:00:00+05:30 keeps its day.
func ParseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, err
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"20060102",
}
