package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/pgaweekly/internal/report"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the database",
	Long: `Run an arbitrary SQL query against the database and print results as a table.

Schema overview:
  pga_players(id, name)
  tournament_players(tournament_id, player_id)
  historical_tournament_results(pga_player_id, tournament_name, course_name,
    tournament_date, finish_position, is_made_cut, total_score,
    strokes_gained_total, strokes_gained_putting, strokes_gained_approach,
    strokes_gained_around_green, strokes_gained_off_tee)
  player_skill_snapshots(player_id, dg_id, driving_overall, ..., putting_30_plus,
    sg_driving, sg_approach, sg_around_green, sg_putting, skills_updated_at)
  update_runs(id, source, started_at, finished_at, players, tournaments_ok,
    skills_ok, interrupted)

Note: tournament_date is stored as text: WHERE tournament_date >= '2024-01-01'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	report.PrintRows(os.Stdout, cols, rows)
	return nil
}
