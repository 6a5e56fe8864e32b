package reporting

import (
	"sort"
	"time"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/snapshot"
)

// Check is one pre-computation coverage check shown in the summary.
type Check struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// MonthCount is the number of rows produced for one calendar month.
type MonthCount struct {
	Month string // YYYY-MM
	Rows  int
}

// Leader is a position ranked first by trailing volume on the last date.
type Leader struct {
	AccountID        string
	ServerID         string
	Instrument       string
	Trailing7dVolume float64
	AllTimeVolume    float64
}

// Summary describes one snapshot run.
type Summary struct {
	GeneratedAt time.Time
	RunID       string

	// Parameters
	StartDate  string
	EndDate    string
	FixedMonth string
	WindowDays int

	// Input
	RecordsLoaded int
	Checks        []Check

	// Output
	Rows       int
	ReportDays int
	Accounts   int
	Positions  int
	ByMonth    []MonthCount
	LastDate   string
	Leaders    []Leader
	Digest     string // SHA-256 of the rendered CSV
}

// AllChecksPassed reports whether every coverage check passed.
func (s *Summary) AllChecksPassed() bool {
	for _, c := range s.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}

// Summarize builds a Summary from formatted rows.
func Summarize(runID string, cfg snapshot.Config, records int, rows []domain.SnapshotRow, checks []Check, digest string, now time.Time) *Summary {
	s := &Summary{
		GeneratedAt:   now,
		RunID:         runID,
		StartDate:     cfg.Start.String(),
		EndDate:       cfg.End.String(),
		FixedMonth:    cfg.Month.String(),
		WindowDays:    cfg.WindowDays,
		RecordsLoaded: records,
		Checks:        checks,
		Rows:          len(rows),
		Digest:        digest,
	}

	days := make(map[string]struct{})
	accounts := make(map[string]struct{})
	positions := make(map[domain.PositionKey]struct{})
	months := make(map[string]int)
	for _, r := range rows {
		days[r.DtReport] = struct{}{}
		accounts[r.AccountID] = struct{}{}
		positions[domain.PositionKey{AccountID: r.AccountID, ServerID: r.ServerID, Instrument: r.Instrument}] = struct{}{}
		months[r.DtReport[:7]]++
		if r.DtReport > s.LastDate {
			s.LastDate = r.DtReport
		}
	}
	s.ReportDays = len(days)
	s.Accounts = len(accounts)
	s.Positions = len(positions)

	for m, n := range months {
		s.ByMonth = append(s.ByMonth, MonthCount{Month: m, Rows: n})
	}
	sort.Slice(s.ByMonth, func(i, j int) bool {
		return s.ByMonth[i].Month < s.ByMonth[j].Month
	})

	for _, r := range rows {
		if r.DtReport != s.LastDate || r.VolumeRank7d != 1 {
			continue
		}
		s.Leaders = append(s.Leaders, Leader{
			AccountID:        r.AccountID,
			ServerID:         r.ServerID,
			Instrument:       r.Instrument,
			Trailing7dVolume: r.Trailing7dVolume,
			AllTimeVolume:    r.AllTimeVolume,
		})
	}
	sort.Slice(s.Leaders, func(i, j int) bool {
		a := domain.PositionKey{AccountID: s.Leaders[i].AccountID, ServerID: s.Leaders[i].ServerID, Instrument: s.Leaders[i].Instrument}
		b := domain.PositionKey{AccountID: s.Leaders[j].AccountID, ServerID: s.Leaders[j].ServerID, Instrument: s.Leaders[j].Instrument}
		return a.Less(b)
	})

	return s
}
