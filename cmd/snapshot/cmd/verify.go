package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"trade-snapshot-lab/internal/domain"
	"trade-snapshot-lab/internal/reporting"
	"trade-snapshot-lab/internal/snapshot"
	"trade-snapshot-lab/internal/verification"
)

// ErrVerificationFailed is returned when outputs diverge.
var ErrVerificationFailed = errors.New("verification failed")

var (
	verifyUseFixtures bool
	verifyAgainst     string
	verifyAgainstFile string
	verifyMaxShown    int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute the snapshot and compare outputs",
	Long: `Computes the snapshot twice from the same ledger (once with the input
order reversed) and compares row values and CSV digests. With --against the
fresh result is also compared with what a store currently holds, and with
--against-file against a CSV written by an earlier run.`,
	RunE: runVerify,
}

func init() {
	f := verifyCmd.Flags()
	f.BoolVar(&verifyUseFixtures, "use-fixtures", false, "use the in-memory demo ledger instead of PostgreSQL")
	f.StringVar(&verifyAgainst, "against", "", "also compare with a stored snapshot: redis or clickhouse")
	f.StringVar(&verifyAgainstFile, "against-file", "", "also compare with a snapshot CSV file")
	f.IntVar(&verifyMaxShown, "show", 10, "divergent rows to print")
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appCfg

	window, err := cfg.Window()
	if err != nil {
		return err
	}
	engine, err := snapshot.NewEngine(window)
	if err != nil {
		return err
	}

	var cl cleanups
	defer cl.run()

	source, err := openSource(ctx, cfg, verifyUseFixtures, &cl)
	if err != nil {
		return err
	}
	records, err := source.LoadTradeRecords(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	report, err := verification.NewDeterminismVerifier(engine).Verify(ctx, records)
	if err != nil {
		return err
	}
	printReport("determinism", report)
	ok := report.OK()

	var fresh []domain.SnapshotRow
	if verifyAgainst != "" || verifyAgainstFile != "" {
		if fresh, err = engine.Run(ctx, records); err != nil {
			return err
		}
	}

	if verifyAgainst != "" {
		store, err := openStore(ctx, cfg, verifyAgainst, &cl)
		if err != nil {
			return err
		}
		storeReport, err := verification.VerifyStore(ctx, store, fresh)
		if err != nil {
			return err
		}
		printReport(verifyAgainst, storeReport)
		ok = ok && storeReport.OK()
	}

	if verifyAgainstFile != "" {
		fileReport, err := verifyFile(verifyAgainstFile, fresh)
		if err != nil {
			return err
		}
		printReport(verifyAgainstFile, fileReport)
		ok = ok && fileReport.OK()
	}

	if !ok {
		return ErrVerificationFailed
	}
	log.Info().Int("rows", report.TotalRows).Msg("Verification passed")
	return nil
}

func verifyFile(path string, expected []domain.SnapshotRow) (*verification.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	actual, err := reporting.ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file %s: %w", path, err)
	}
	return verification.CompareSnapshots(expected, actual)
}

func printReport(name string, r *verification.Report) {
	status := "PASS"
	if !r.OK() {
		status = "FAIL"
	}
	fmt.Printf("[%s] %s: rows=%d matched=%d divergent=%d missing=%d extra=%d\n",
		status, name, r.TotalRows, r.MatchedRows, r.DivergentRows, r.MissingRows, r.ExtraRows)
	fmt.Printf("  expected digest: %s\n  actual digest:   %s\n", r.ExpectedDigest, r.ActualDigest)

	for i, res := range r.Results {
		if i >= verifyMaxShown {
			fmt.Printf("  ... %d more\n", len(r.Results)-i)
			break
		}
		if len(res.Divergences) == 0 {
			fmt.Printf("  %s: missing on one side\n", res.Key)
			continue
		}
		for _, d := range res.Divergences {
			fmt.Printf("  %s: %s expected=%v actual=%v\n", res.Key, d.Field, d.Expected, d.Actual)
		}
	}
}
