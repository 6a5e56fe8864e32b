package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/storage/migrations"
)

var (
	migratePostgres   bool
	migrateClickHouse bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres and ClickHouse schemas",
	Long: `Applies the embedded schemas: the users/trades ledger tables in
PostgreSQL and the trading_activity_snapshot table in ClickHouse.
Without flags every database with a configured DSN is migrated.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migratePostgres, "postgres", false, "migrate PostgreSQL only")
	migrateCmd.Flags().BoolVar(&migrateClickHouse, "clickhouse", false, "migrate ClickHouse only")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appCfg

	doPG, doCH := migratePostgres, migrateClickHouse
	if !doPG && !doCH {
		doPG = cfg.Postgres.DSN != ""
		doCH = cfg.ClickHouse.DSN != ""
	}
	if !doPG && !doCH {
		return fmt.Errorf("%w: no database configured (SNAPSHOT_POSTGRES_DSN, SNAPSHOT_CLICKHOUSE_DSN)", domain.ErrConfiguration)
	}

	var cl cleanups
	defer cl.run()

	if doPG {
		pool, err := openPostgres(ctx, cfg, &cl)
		if err != nil {
			return err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		log.Info().Msg("PostgreSQL migrations applied")
	}

	if doCH {
		if cfg.ClickHouse.DSN == "" {
			return fmt.Errorf("%w: SNAPSHOT_CLICKHOUSE_DSN is required", domain.ErrConfiguration)
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		conn.Close()
		log.Info().Msg("ClickHouse migrations applied")
	}

	fmt.Println("Migrations applied")
	return nil
}
