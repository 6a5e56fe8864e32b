package migrations

import (
	"context"
	"fmt"
	"strings"

	"trade-snapshot-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded ledger schema in lexical order.
// Every file is idempotent, so re-running is safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readMigrations(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, f := range files {
		if strings.TrimSpace(f.SQL) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, f.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.Name, err)
		}
	}
	return nil
}
