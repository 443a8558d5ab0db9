package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/field"
	"github.com/pable/pgaweekly/internal/resolver"
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Manage stored tournament fields",
}

var fieldImportCmd = &cobra.Command{
	Use:   "import <tournament-id> <players.csv>",
	Short: "Store a tournament field from a CSV of player names",
	Long: `Resolves each name against the registry and stores the matches as the
field of the given tournament, for use with 'pgaweekly update --tournament-id'.
Names not in the registry are reported and skipped. Importing twice is safe.`,
	Args: cobra.ExactArgs(2),
	RunE: runFieldImport,
}

func init() {
	fieldCmd.AddCommand(fieldImportCmd)
}

func runFieldImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tournamentID, path := args[0], args[1]

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open field file")
	}
	defer f.Close()
	players, err := field.ReadNames(f)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	res := resolver.New(db, logger)
	var ids []string
	skipped := 0
	for _, name := range players {
		p, err := res.Resolve(ctx, name)
		if err != nil {
			if !errors.Is(err, resolver.ErrNotFound) {
				return err
			}
			fmt.Fprintf(os.Stderr, "[skip] %s - not in registry\n", name)
			skipped++
			continue
		}
		ids = append(ids, p.ID)
	}

	n, err := db.ImportField(ctx, tournamentID, ids)
	if err != nil {
		return errors.Wrap(err, "import field")
	}
	fmt.Fprintf(os.Stdout, "Field %s: %d added, %d already present, %d skipped.\n",
		tournamentID, n, len(ids)-n, skipped)
	return nil
}
