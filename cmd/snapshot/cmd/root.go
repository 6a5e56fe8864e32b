// Package cmd - snapshot CLI commands
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trade-snapshot-lab/internal/config"
	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/logger"
)

// Exit codes
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitDataContract  = 3
	ExitJoinIntegrity = 4
)

var (
	// Common flags
	cfgFile  string
	envFiles []string

	startDate   string
	endDate     string
	fixedMonth  string
	windowDays  int
	logLevel    string
	logFormat   string
	postgresDSN string

	// Loaded in PersistentPreRunE
	appCfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Daily trading activity snapshot",
	Long: `Computes the daily trading activity fact table from a trade ledger.

Commands:
    run       compute the snapshot and write it to the configured sinks
    migrate   apply Postgres and ClickHouse schemas
    seed      load the demo ledger into Postgres
    verify    recompute and compare digests (and optionally a stored snapshot)
    serve     run on a schedule and serve snapshots over HTTP
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file (overrides SNAPSHOT_CONFIG_FILE)")
	pf.StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files to load")
	pf.StringVar(&startDate, "start", "", "reporting start date YYYY-MM-DD")
	pf.StringVar(&endDate, "end", "", "reporting end date YYYY-MM-DD")
	pf.StringVar(&fixedMonth, "fixed-month", "", "fixed month window YYYY-MM")
	pf.IntVar(&windowDays, "window-days", 0, "trailing window length in days")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (json, pretty)")
	pf.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads .env files, the environment and the YAML overlay, then
// applies command-line overrides.
func initConfig(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		cfg.ReportingStartDate = startDate
	}
	if flags.Changed("end") {
		cfg.ReportingEndDate = endDate
	}
	if flags.Changed("fixed-month") {
		cfg.FixedMonthWindow = fixedMonth
	}
	if flags.Changed("window-days") {
		cfg.RollingWindowDays = windowDays
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("postgres-dsn") {
		cfg.Postgres.DSN = postgresDSN
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:         cfg.Logging.Level,
		Format:        cfg.Logging.Format,
		Service:       "snapshot",
		FilePath:      cfg.Logging.Dir,
		RotationSize:  cfg.Logging.RotationSize,
		RetentionDays: cfg.Logging.RetentionDays,
	}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	appCfg = cfg
	return nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrConfiguration):
		return ExitConfiguration
	case errors.Is(err, domain.ErrDataContract):
		return ExitDataContract
	case errors.Is(err, domain.ErrJoinIntegrity):
		return ExitJoinIntegrity
	default:
		return ExitFailure
	}
}
