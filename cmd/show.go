package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/report"
	"github.com/pable/pgaweekly/internal/resolver"
)

var showLimit int

var showCmd = &cobra.Command{
	Use:   "show <player name>",
	Short: "Show stored tournament records and skills for a player",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "show only the N most recent tournaments (0 = all)")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := strings.Join(args, " ")

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolver.New(db, logger).Resolve(ctx, name)
	if errors.Is(err, resolver.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No registry player matches %q\n", name)
		return nil
	}
	if err != nil {
		return err
	}

	results, err := db.PlayerResults(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "get results")
	}
	snap, err := db.SkillSnapshot(ctx, p.ID)
	if err != nil {
		return errors.Wrap(err, "get skill snapshot")
	}

	fmt.Fprintf(os.Stdout, "\n%s  |  id: %s  |  Tournaments: %d\n\n", p.Name, p.ID, len(results))
	if showLimit > 0 && len(results) > showLimit {
		results = results[:showLimit]
	}
	if len(results) > 0 {
		report.PrintResultTable(os.Stdout, results)
	}
	report.PrintSnapshot(os.Stdout, snap)
	return nil
}
