package snapshot

import (
	"fmt"
	"time"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/window"
)

// Config holds the reporting parameters of a snapshot run.
type Config struct {
	Start      calendar.Date  // first reporting date, inclusive
	End        calendar.Date  // last reporting date, inclusive
	Month      calendar.Month // fixed-month volume window
	WindowDays int            // trailing window length
}

// DefaultConfig returns the 2020-06-01..2020-09-30 reporting period with
// an August 2020 fixed month and a seven day trailing window.
func DefaultConfig() Config {
	return Config{
		Start:      calendar.NewDate(2020, time.June, 1),
		End:        calendar.NewDate(2020, time.September, 30),
		Month:      calendar.Month{Year: 2020, Month: time.August},
		WindowDays: window.DefaultDays,
	}
}

// Validate checks the configuration before any work starts.
func (c Config) Validate() error {
	if c.Start > c.End {
		return fmt.Errorf("%w: reporting_start_date %s is after reporting_end_date %s",
			domain.ErrConfiguration, c.Start, c.End)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("%w: rolling_window_days must be at least 1, got %d",
			domain.ErrConfiguration, c.WindowDays)
	}
	if c.Month.Month < time.January || c.Month.Month > time.December {
		return fmt.Errorf("%w: fixed_month_window has invalid month %d",
			domain.ErrConfiguration, c.Month.Month)
	}
	return nil
}
