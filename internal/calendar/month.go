package calendar

import (
	"fmt"
	"time"

	"trade-snapshot-lab/internal/domain"
)

// MonthLayout is the wire format of a Month.
const MonthLayout = "2006-01"

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: parse month %q: %v", domain.ErrConfiguration, s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, m.Month, 1)
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return NewDate(m.Year, m.Month+1, 1).AddDays(-1)
}

// Contains reports whether d falls inside the month.
func (m Month) Contains(d Date) bool {
	return d >= m.First() && d <= m.Last()
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}
