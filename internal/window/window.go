// Package window computes per-date windowed aggregates over a grid.
// Every aggregator returns a sparse series: cells with no contributing
// trades are absent and take their default when the snapshot is assembled.
package window

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/grid"
)

// DefaultDays is the default trailing window length.
const DefaultDays = 7

// Grain selects the grouping key of an aggregate.
type Grain int

const (
	// GrainPosition groups by (account, server, instrument).
	GrainPosition Grain = iota
	// GrainAccountInstrument groups by (account, instrument).
	GrainAccountInstrument
	// GrainAccount groups by account.
	GrainAccount
)

// Project reduces a position key to the grain.
func (g Grain) Project(k domain.PositionKey) domain.PositionKey {
	switch g {
	case GrainAccountInstrument:
		return domain.PositionKey{AccountID: k.AccountID, Instrument: k.Instrument}
	case GrainAccount:
		return domain.PositionKey{AccountID: k.AccountID}
	default:
		return k
	}
}

func (g Grain) String() string {
	switch g {
	case GrainAccountInstrument:
		return "account_instrument"
	case GrainAccount:
		return "account"
	default:
		return "position"
	}
}

// Cell addresses one aggregate value.
type Cell struct {
	Date calendar.Date
	Key  domain.PositionKey // projected to the series grain
}

// VolumeSeries maps cells to summed volume.
type VolumeSeries map[Cell]decimal.Decimal

// CountSeries maps cells to trade counts.
type CountSeries map[Cell]int

// TimeSeries maps cells to a timestamp.
type TimeSeries map[Cell]time.Time

// collect evaluates fn for every position key visible on each date and
// folds the results into the grain with merge. fn returns false when the
// key contributes nothing on that date.
func collect[V any](
	ctx context.Context,
	g *grid.Grid,
	dates []calendar.Date,
	grain Grain,
	fn func(k domain.PositionKey, d calendar.Date) (V, bool),
	merge func(a, b V) V,
) (map[Cell]V, error) {
	out := make(map[Cell]V)

	for _, d := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, k := range g.VisibleKeys(d) {
			v, ok := fn(k, d)
			if !ok {
				continue
			}
			cell := Cell{Date: d, Key: grain.Project(k)}
			if prev, exists := out[cell]; exists {
				out[cell] = merge(prev, v)
			} else {
				out[cell] = v
			}
		}
	}

	return out, nil
}

func addDecimal(a, b decimal.Decimal) decimal.Decimal { return a.Add(b) }

func addInt(a, b int) int { return a + b }

func checkDays(days int) error {
	if days < 1 {
		return fmt.Errorf("%w: rolling window must be at least 1 day, got %d", domain.ErrConfiguration, days)
	}
	return nil
}
