// Package orchestrator runs one snapshot end to end.
// Flow: load ledger → compute → coverage checks → sinks → summary
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/idhash"
	"trade-snapshot-lab/internal/observability"
	"trade-snapshot-lab/internal/pipeline"
	"trade-snapshot-lab/internal/reporting"
	"trade-snapshot-lab/internal/snapshot"
	"trade-snapshot-lab/internal/storage"
)

// Sink is a named snapshot destination.
type Sink struct {
	Name string
	storage.SnapshotSink
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Source storage.LedgerSource
	Engine *snapshot.Engine

	// Destinations, written in order
	Sinks []Sink

	// Optional
	Generator *reporting.Generator // writes SNAPSHOT_SUMMARY.md when set
	Metrics   *observability.Metrics
	Logger    zerolog.Logger
	NewRunID  func() string // defaults to a random UUID
}

// Orchestrator coordinates a snapshot run.
type Orchestrator struct {
	source    storage.LedgerSource
	engine    *snapshot.Engine
	sinks     []Sink
	generator *reporting.Generator
	metrics   *observability.Metrics
	logger    zerolog.Logger
	newRunID  func() string
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		source:    opts.Source,
		engine:    opts.Engine,
		sinks:     opts.Sinks,
		generator: opts.Generator,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		newRunID:  opts.NewRunID,
	}
	if o.newRunID == nil {
		o.newRunID = uuid.NewString
	}
	if o.metrics != nil {
		o.engine = opts.Engine.WithObserver(o.metrics.ObserveStage)
	}
	return o
}

// RunResult contains results from one run.
type RunResult struct {
	RunID         string
	RecordsLoaded int
	Rows          []domain.SnapshotRow
	Coverage      *pipeline.CoverageResult
	Digest        string
	Summary       *reporting.Summary
	SummaryPath   string
	Duration      time.Duration
}

// Run executes the full snapshot pipeline.
// Phases:
//  1. Load the cleaned ledger
//  2. Compute and format the snapshot
//  3. Check ledger coverage of the reporting window
//  4. Write every sink
//  5. Write the run summary
func (o *Orchestrator) Run(ctx context.Context) (result *RunResult, err error) {
	start := time.Now()
	runID := o.newRunID()
	log := o.logger.With().Str("run_id", runID).Logger()

	defer func() {
		if o.metrics != nil {
			o.metrics.RecordRun(time.Since(start), err)
		}
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Snapshot run failed")
		}
	}()

	result = &RunResult{RunID: runID}
	cfg := o.engine.Config()

	// Phase 1
	log.Info().
		Str("start", cfg.Start.String()).
		Str("end", cfg.End.String()).
		Str("fixed_month", cfg.Month.String()).
		Int("window_days", cfg.WindowDays).
		Msg("Phase 1: Loading ledger")
	records, err := o.source.LoadTradeRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load ledger) failed: %w", err)
	}
	result.RecordsLoaded = len(records)
	if o.metrics != nil {
		o.metrics.RecordsLoaded.Set(float64(len(records)))
	}
	log.Info().Int("records", len(records)).Msg("  Ledger loaded")

	// Phase 2
	log.Info().Msg("Phase 2: Computing snapshot")
	computed, err := o.engine.Compute(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (compute) failed: %w", err)
	}
	rows := snapshot.Format(computed.Rows)
	result.Rows = rows
	csv, err := reporting.RenderCSV(rows)
	if err != nil {
		return nil, fmt.Errorf("phase 2 (digest) failed: %w", err)
	}
	result.Digest = idhash.ComputeDigest(csv)
	if o.metrics != nil {
		o.metrics.RowsEmitted.Set(float64(len(rows)))
		o.metrics.ReportDays.Set(float64(len(computed.Dates)))
	}
	log.Info().Int("rows", len(rows)).Str("digest", result.Digest).Msg("  Snapshot computed")

	// Phase 3
	result.Coverage = pipeline.CheckCoverage(computed.Grid, cfg)
	if o.metrics != nil {
		o.metrics.CheckFailures.Set(float64(len(result.Coverage.Failed())))
	}
	if result.Coverage.AllPass {
		log.Info().Msg("Phase 3: All coverage checks passed")
	} else {
		log.Warn().Strs("failed", result.Coverage.Failed()).Msg("Phase 3: Coverage checks failed")
	}

	// Phase 4
	log.Info().Int("sinks", len(o.sinks)).Msg("Phase 4: Writing sinks")
	var sinkErrs []error
	for _, s := range o.sinks {
		t := time.Now()
		werr := s.WriteSnapshot(ctx, runID, rows)
		if o.metrics != nil {
			o.metrics.RecordSinkWrite(s.Name, time.Since(t), werr)
		}
		if werr != nil {
			log.Error().Err(werr).Str("sink", s.Name).Msg("  Sink write failed")
			sinkErrs = append(sinkErrs, fmt.Errorf("sink %s: %w", s.Name, werr))
			continue
		}
		log.Info().Str("sink", s.Name).Dur("duration", time.Since(t)).Msg("  Sink written")
	}
	if len(sinkErrs) > 0 {
		return nil, fmt.Errorf("phase 4 (sinks) failed: %w", errors.Join(sinkErrs...))
	}

	// Phase 5
	if o.generator != nil {
		result.Summary = reporting.Summarize(runID, cfg, len(records), rows, coverageChecks(result.Coverage), result.Digest, o.generator.Now())
		path, err := o.generator.WriteSummary(result.Summary)
		if err != nil {
			return nil, fmt.Errorf("phase 5 (summary) failed: %w", err)
		}
		result.SummaryPath = path
		log.Info().Str("path", path).Msg("Phase 5: Summary written")
	}

	result.Duration = time.Since(start)
	log.Info().
		Int("records", result.RecordsLoaded).
		Int("rows", len(result.Rows)).
		Dur("duration", result.Duration).
		Msg("Snapshot run completed")
	return result, nil
}

func coverageChecks(r *pipeline.CoverageResult) []reporting.Check {
	out := make([]reporting.Check, len(r.Checks))
	for i, c := range r.Checks {
		out[i] = reporting.Check{Name: c.Name, Threshold: c.Threshold, Actual: c.Actual, Pass: c.Pass}
	}
	return out
}
