package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trade-snapshot-lab/internal/pipeline"
	"trade-snapshot-lab/internal/storage/migrations"
	pgstore "trade-snapshot-lab/internal/storage/postgres"
)

var seedMigrate bool

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo ledger into PostgreSQL",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", true, "apply PostgreSQL migrations first")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var cl cleanups
	defer cl.run()

	pool, err := openPostgres(ctx, appCfg, &cl)
	if err != nil {
		return err
	}
	if seedMigrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
	}

	accounts := pipeline.DemoAccounts()
	trades := pipeline.DemoTrades()
	if err := pipeline.LoadFixtures(ctx, pgstore.NewAccountStore(pool), pgstore.NewTradeStore(pool)); err != nil {
		return err
	}

	log.Info().Int("accounts", len(accounts)).Int("trades", len(trades)).Msg("Demo ledger seeded")
	fmt.Printf("Seeded %d accounts and %d trades\n", len(accounts), len(trades))
	return nil
}
