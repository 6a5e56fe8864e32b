package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trade-snapshot-lab/internal/observability"
	"trade-snapshot-lab/internal/orchestrator"
	"trade-snapshot-lab/internal/reporting"
	"trade-snapshot-lab/internal/snapshot"
)

var (
	runUseFixtures bool
	runSinks       []string
	runOutputDir   string
	runMetricsFile string
	runNoSummary   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the snapshot and write it to the configured sinks",
	Long: `Loads the ledger, computes the trading activity snapshot for the
reporting window and writes it to every sink.

Examples:
  snapshot run --use-fixtures
  snapshot run --sink csv,clickhouse --start 2020-06-01 --end 2020-09-30
  snapshot run --sink redis --metrics-file /var/lib/node_exporter/snapshot.prom`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.BoolVar(&runUseFixtures, "use-fixtures", false, "use the in-memory demo ledger instead of PostgreSQL")
	f.StringSliceVar(&runSinks, "sink", nil, "sinks to write: csv, xlsx, clickhouse, redis (default SNAPSHOT_OUTPUT_FORMATS)")
	f.StringVar(&runOutputDir, "output-dir", "", "output directory (default SNAPSHOT_OUTPUT_DIR)")
	f.StringVar(&runMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	f.BoolVar(&runNoSummary, "no-summary", false, "skip SNAPSHOT_SUMMARY.md")
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	cfg := appCfg

	outputDir := cfg.Output.Dir
	if runOutputDir != "" {
		outputDir = runOutputDir
	}
	sinkNames := cfg.Output.Formats
	if len(runSinks) > 0 {
		sinkNames = runSinks
	}
	metricsFile := cfg.Output.MetricsFile
	if runMetricsFile != "" {
		metricsFile = runMetricsFile
	}

	window, err := cfg.Window()
	if err != nil {
		return err
	}
	engine, err := snapshot.NewEngine(window)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics("")
	if metricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(metricsFile); werr != nil {
				log.Error().Err(werr).Str("path", metricsFile).Msg("Failed to write metrics textfile")
			}
		}()
	}

	var cl cleanups
	defer cl.run()

	source, err := openSource(ctx, cfg, runUseFixtures, &cl)
	if err != nil {
		metrics.RecordRun(0, err)
		return err
	}
	sinks, err := openSinks(ctx, cfg, sinkNames, outputDir, &cl)
	if err != nil {
		metrics.RecordRun(0, err)
		return err
	}

	var gen *reporting.Generator
	if !runNoSummary {
		gen = reporting.NewGenerator(outputDir)
	}

	orch := orchestrator.New(orchestrator.Options{
		Source:    source,
		Engine:    engine,
		Sinks:     sinks,
		Generator: gen,
		Metrics:   metrics,
		Logger:    log.Logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s: %d records -> %d rows in %s\n",
		result.RunID, result.RecordsLoaded, len(result.Rows), result.Duration.Round(time.Millisecond))
	fmt.Printf("Digest: %s\n", result.Digest)
	if result.SummaryPath != "" {
		fmt.Printf("Summary: %s\n", result.SummaryPath)
	}
	return nil
}
