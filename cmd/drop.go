package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/storage"
)

var dropForce bool

// dropCmd deletes the SQLite database file.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the SQLite database",
	Long:  "Permanently delete the SQLite database. The registry, stored fields, results, snapshots and run history are lost.",
	Args:  cobra.NoArgs,
	RunE:  runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if storage.DialectFor(cfg.DB) != storage.SQLite {
		return errors.WithHint(errors.New("drop only deletes SQLite files"),
			"drop the PostgreSQL tables with your database tools")
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", cfg.DB)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(cfg.DB); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return errors.Wrap(err, "remove database")
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Remove(cfg.DB + suffix)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", cfg.DB)
	return nil
}
