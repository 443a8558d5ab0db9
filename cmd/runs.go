package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/report"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded update runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	db, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return errors.Wrap(err, "list runs")
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stdout, "No runs recorded yet. Run 'pgaweekly update' to start one.")
		return nil
	}
	report.PrintRunsTable(os.Stdout, runs)
	return nil
}
