package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// DateOf drops the time of day from t, keeping the calendar date as seen in
// t's location. The result is midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// ParseDate parses a YYYY-MM-DD string into a calendar date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", value, DateLayout)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// RangesOverlap reports whether the half-open ranges [a, b) and [c, d)
// intersect, i.e. a < d and c < b.
func RangesOverlap(a, b, c, d time.Time) bool {
	return a.Before(d) && c.Before(b)
}

// ValidRange reports whether checkIn is strictly before checkOut.
func ValidRange(checkIn, checkOut time.Time) bool {
	return checkIn.Before(checkOut)
}
