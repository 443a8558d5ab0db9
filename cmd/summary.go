package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/report"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display registry size, stored tournament records, skill snapshots,
the covered date range and the number of recorded runs.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.Overview(cmd.Context())
	if err != nil {
		return errors.Wrap(err, "get overview")
	}
	if ov.Players == 0 {
		fmt.Fprintln(os.Stdout, "Registry is empty. Run 'pgaweekly registry import <players.csv>' first.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary (%s) ===\n\n", db.Dialect())
	report.PrintOverview(os.Stdout, ov)

	results, snapshots := db.UpsertSupported()
	if !results || !snapshots {
		fmt.Fprintln(os.Stdout, "\nNote: some tables lack their unique key; writes use delete-then-insert.")
	}
	return nil
}
