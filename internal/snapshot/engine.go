// Package snapshot computes the daily trading activity snapshot: it
// expands the ledger over the reporting calendar, runs the window
// aggregators and rank assigners, and assembles the joined fact table.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"trade-snapshot-lab/internal/calendar"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/grid"
	"trade-snapshot-lab/internal/ledger"
	"trade-snapshot-lab/internal/ranking"
	"trade-snapshot-lab/internal/window"
)

// Stage names reported to the observer.
const (
	StageValidate  = "validate"
	StageGrid      = "grid"
	StageAggregate = "aggregate"
	StageRank      = "rank"
	StageAssemble  = "assemble"
)

// Result is the output of one engine run.
type Result struct {
	Rows  []Row
	Dates []calendar.Date
	Grid  *grid.Grid
}

// Engine runs the snapshot computation for a fixed configuration.
type Engine struct {
	cfg     Config
	observe func(stage string, elapsed time.Duration)
}

// NewEngine creates an engine. The configuration is validated up front.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:     cfg,
		observe: func(string, time.Duration) {},
	}, nil
}

// WithObserver returns a copy of the engine that reports the duration of
// every stage to fn. The receiver is left unchanged, so one engine can be
// shared by callers with different observers.
func (e *Engine) WithObserver(fn func(stage string, elapsed time.Duration)) *Engine {
	c := *e
	c.observe = fn
	return &c
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Compute validates records and produces the assembled snapshot rows.
// Records are not modified.
func (e *Engine) Compute(ctx context.Context, records []domain.TradeRecord) (*Result, error) {
	dates, err := calendar.Range(e.cfg.Start, e.cfg.End)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if err := ledger.Validate(records); err != nil {
		return nil, err
	}
	e.observe(StageValidate, time.Since(start))

	start = time.Now()
	g := grid.New(records)
	e.observe(StageGrid, time.Since(start))

	start = time.Now()
	aggs, err := e.aggregate(ctx, g, dates)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	e.observe(StageAggregate, time.Since(start))

	start = time.Now()
	ranks, err := rank(ctx, aggs)
	if err != nil {
		return nil, fmt.Errorf("rank: %w", err)
	}
	e.observe(StageRank, time.Since(start))

	start = time.Now()
	rows, err := Assemble(dates, g, aggs, ranks)
	if err != nil {
		return nil, err
	}
	e.observe(StageAssemble, time.Since(start))

	return &Result{Rows: rows, Dates: dates, Grid: g}, nil
}

// aggregate runs the six window aggregators concurrently. The grid and
// dates are shared read-only; each task writes only its own series.
func (e *Engine) aggregate(ctx context.Context, g *grid.Grid, dates []calendar.Date) (Aggregates, error) {
	var aggs Aggregates
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s, err := window.TrailingVolume(ctx, g, dates, e.cfg.WindowDays)
		aggs.Trailing = s
		return err
	})
	eg.Go(func() error {
		s, err := window.AllTimeVolume(ctx, g, dates)
		aggs.AllTime = s
		return err
	})
	eg.Go(func() error {
		s, err := window.TrailingInstrumentVolume(ctx, g, dates, e.cfg.WindowDays)
		aggs.TrailingInstrument = s
		return err
	})
	eg.Go(func() error {
		s, err := window.TrailingTradeCount(ctx, g, dates, e.cfg.WindowDays)
		aggs.TrailingCount = s
		return err
	})
	eg.Go(func() error {
		s, err := window.FixedMonthVolume(ctx, g, dates, e.cfg.Month)
		aggs.FixedMonth = s
		return err
	})
	eg.Go(func() error {
		s, err := window.FirstTrade(ctx, g, dates)
		aggs.FirstTrade = s
		return err
	})

	if err := eg.Wait(); err != nil {
		return Aggregates{}, err
	}
	return aggs, nil
}

// rank runs both rank assigners concurrently.
func rank(ctx context.Context, aggs Aggregates) (Rankings, error) {
	var r Rankings
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Volume = ranking.VolumeRanks(aggs.TrailingInstrument)
		return nil
	})
	eg.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.TradeCount = ranking.TradeCountRanks(aggs.TrailingCount)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return Rankings{}, err
	}
	return r, nil
}

// Run computes and formats the snapshot in one call.
func (e *Engine) Run(ctx context.Context, records []domain.TradeRecord) ([]domain.SnapshotRow, error) {
	res, err := e.Compute(ctx, records)
	if err != nil {
		return nil, err
	}
	return Format(res.Rows), nil
}
