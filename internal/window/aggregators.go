package window

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/grid"
)

// TrailingVolume sums volume per (account, server, instrument) over the
// days-long window ending on each date.
func TrailingVolume(ctx context.Context, g *grid.Grid, dates []calendar.Date, days int) (VolumeSeries, error) {
	return trailingVolume(ctx, g, dates, days, GrainPosition)
}

// TrailingInstrumentVolume sums volume per (account, instrument) over the
// days-long window ending on each date. Servers are merged.
func TrailingInstrumentVolume(ctx context.Context, g *grid.Grid, dates []calendar.Date, days int) (VolumeSeries, error) {
	return trailingVolume(ctx, g, dates, days, GrainAccountInstrument)
}

func trailingVolume(ctx context.Context, g *grid.Grid, dates []calendar.Date, days int, grain Grain) (VolumeSeries, error) {
	if err := checkDays(days); err != nil {
		return nil, err
	}
	return collect(ctx, g, dates, grain,
		func(k domain.PositionKey, d calendar.Date) (decimal.Decimal, bool) {
			from, to := calendar.Trailing(d, days)
			if g.CountBetween(k, from, to) == 0 {
				return decimal.Zero, false
			}
			return g.VolumeBetween(k, from, to), true
		},
		addDecimal,
	)
}

// AllTimeVolume sums volume per (account, server, instrument) of every
// trade closed on or before each date.
func AllTimeVolume(ctx context.Context, g *grid.Grid, dates []calendar.Date) (VolumeSeries, error) {
	return collect(ctx, g, dates, GrainPosition,
		func(k domain.PositionKey, d calendar.Date) (decimal.Decimal, bool) {
			first, _ := g.FirstActive(k)
			return g.VolumeBetween(k, first, d), true
		},
		addDecimal,
	)
}

// TrailingTradeCount counts trades per account, across all servers and
// instruments, over the days-long window ending on each date.
func TrailingTradeCount(ctx context.Context, g *grid.Grid, dates []calendar.Date, days int) (CountSeries, error) {
	if err := checkDays(days); err != nil {
		return nil, err
	}
	return collect(ctx, g, dates, GrainAccount,
		func(k domain.PositionKey, d calendar.Date) (int, bool) {
			from, to := calendar.Trailing(d, days)
			n := g.CountBetween(k, from, to)
			return n, n > 0
		},
		addInt,
	)
}

// FixedMonthVolume sums volume per (account, server, instrument) of trades
// closed inside month and on or before each date.
func FixedMonthVolume(ctx context.Context, g *grid.Grid, dates []calendar.Date, month calendar.Month) (VolumeSeries, error) {
	return collect(ctx, g, dates, GrainPosition,
		func(k domain.PositionKey, d calendar.Date) (decimal.Decimal, bool) {
			if d < month.First() {
				return decimal.Zero, false
			}
			to := month.Last()
			if d < to {
				to = d
			}
			if g.CountBetween(k, month.First(), to) == 0 {
				return decimal.Zero, false
			}
			return g.VolumeBetween(k, month.First(), to), true
		},
		addDecimal,
	)
}

// FirstTrade returns the earliest close time per (account, server,
// instrument) visible on each date.
func FirstTrade(ctx context.Context, g *grid.Grid, dates []calendar.Date) (TimeSeries, error) {
	return collect(ctx, g, dates, GrainPosition,
		func(k domain.PositionKey, d calendar.Date) (time.Time, bool) {
			return g.FirstClose(k, d)
		},
		func(a, b time.Time) time.Time {
			if b.Before(a) {
				return b
			}
			return a
		},
	)
}
