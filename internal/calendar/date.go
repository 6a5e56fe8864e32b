// Package calendar provides UTC civil dates and reporting calendars.
package calendar

import (
	"fmt"
	"time"

	"trade-snapshot-lab/internal/domain"
)

// Layout is the wire format of a Date.
const Layout = "2006-01-02"

// Date is a UTC calendar day, counted in days since 1970-01-01.
type Date int32

const secondsPerDay = 24 * 60 * 60

// DateOf returns the UTC calendar day of t.
func DateOf(t time.Time) Date {
	u := t.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return Date(midnight.Unix() / secondsPerDay)
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: parse date %q: %v", domain.ErrConfiguration, s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

func (d Date) String() string {
	return d.Time().Format(Layout)
}

// Range returns every day from start to end inclusive, in order.
func Range(start, end Date) ([]Date, error) {
	if start > end {
		return nil, fmt.Errorf("%w: reporting start %s is after end %s",
			domain.ErrConfiguration, start, end)
	}

	dates := make([]Date, 0, int(end-start)+1)
	for d := start; d <= end; d++ {
		dates = append(dates, d)
	}
	return dates, nil
}

// Trailing returns the first and last day of the n-day window ending on d.
// A trade closed on day c is inside the window iff c > d-n and c <= d.
func Trailing(d Date, n int) (from, to Date) {
	return d.AddDays(-(n - 1)), d
}
