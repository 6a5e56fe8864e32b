package pipeline

import (
	"fmt"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/grid"
	"trade-snapshot-lab/internal/snapshot"
)

// CoverageCheck represents one ledger coverage criterion.
type CoverageCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// CoverageResult contains all coverage checks of one ledger.
type CoverageResult struct {
	Checks  []CoverageCheck
	AllPass bool
}

// Failed returns the names of failed checks.
func (r *CoverageResult) Failed() []string {
	var out []string
	for _, c := range r.Checks {
		if !c.Pass {
			out = append(out, c.Name)
		}
	}
	return out
}

// CheckCoverage compares the ledger span with the reporting window.
// Failures do not stop a run: the snapshot is still well defined, it just
// carries zero volumes where the ledger has no data.
func CheckCoverage(g *grid.Grid, cfg snapshot.Config) *CoverageResult {
	result := &CoverageResult{AllPass: true}
	add := func(c CoverageCheck) {
		result.Checks = append(result.Checks, c)
		if !c.Pass {
			result.AllPass = false
		}
	}

	add(CoverageCheck{
		Name:      "Trade records",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", g.Len()),
		Pass:      g.Len() > 0,
	})

	firstClose, lastClose, ok := g.Span()
	if !ok {
		for _, name := range []string{"Trailing window warm-up", "Activity before range end", "Fixed month activity"} {
			add(CoverageCheck{Name: name, Threshold: "-", Actual: "no data", Pass: false})
		}
		return result
	}

	warmup := cfg.Start.AddDays(-(cfg.WindowDays - 1))
	add(CoverageCheck{
		Name:      "Trailing window warm-up",
		Threshold: fmt.Sprintf("first close <= %s", warmup),
		Actual:    firstClose.String(),
		Pass:      firstClose <= warmup,
	})

	tail, _ := calendar.Trailing(cfg.End, cfg.WindowDays)
	add(CoverageCheck{
		Name:      "Activity before range end",
		Threshold: fmt.Sprintf("last close >= %s", tail),
		Actual:    lastClose.String(),
		Pass:      lastClose >= tail,
	})

	inMonth := 0
	for _, k := range g.Keys() {
		inMonth += g.CountBetween(k, cfg.Month.First(), cfg.Month.Last())
	}
	add(CoverageCheck{
		Name:      "Fixed month activity",
		Threshold: fmt.Sprintf("trades closed in %s >= 1", cfg.Month),
		Actual:    fmt.Sprintf("%d", inMonth),
		Pass:      inMonth > 0,
	})

	return result
}
