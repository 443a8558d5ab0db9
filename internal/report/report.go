package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/pgaweekly/internal/model"
	"github.com/pable/pgaweekly/internal/pipeline"
)

const missing = "—"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintFieldHeader prints the one-line banner shown before a run starts.
func PrintFieldHeader(w io.Writer, info model.TournamentInfo, source string, players int) {
	fmt.Fprintf(w, "\nField: %s  |  Date: %s  |  Source: %s  |  Players: %d\n\n",
		orMissing(info.Name), orMissing(info.Date), source, players)
}

// PrintRunSummary prints the end-of-run counters.
func PrintRunSummary(w io.Writer, s pipeline.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "WEEKLY UPDATE COMPLETE")
	fmt.Fprintf(w, "Tournament records updated: %d\n", s.TournamentsOK)
	fmt.Fprintf(w, "Skill profiles refreshed: %d\n\n", s.SkillsOK)

	table := newTable(w)
	table.Header("PLAYERS", "PROCESSED", "RESULT_ROWS", "NOT_IN_REG", "NO_DATA", "FAILED", "ELAPSED")
	table.Append(
		strconv.Itoa(s.Players),
		strconv.Itoa(s.Processed),
		strconv.Itoa(s.ResultRows),
		strconv.Itoa(s.NotInRegistry),
		strconv.Itoa(s.NoData),
		strconv.Itoa(s.Failed),
		s.Duration().Round(time.Second).String(),
	)
	table.Render()
}

// PrintResultTable prints a player's stored tournament records, newest first.
func PrintResultTable(w io.Writer, results []model.TournamentResult) {
	table := newTable(w)
	table.Header("DATE", "TOURNAMENT", "COURSE", "FIN", "CUT", "SCORE", "SG_TOT", "SG_OTT", "SG_APP", "SG_ARG", "SG_PUTT")
	for _, r := range results {
		cut := "MC"
		if r.IsMadeCut {
			cut = "✓"
		}
		table.Append(
			r.TournamentDate,
			r.TournamentName,
			orMissing(r.CourseName),
			intCell(r.FinishPosition),
			cut,
			intCell(r.TotalScore),
			sgCell(r.SGTotal),
			sgCell(r.SGOffTee),
			sgCell(r.SGApproach),
			sgCell(r.SGAroundGreen),
			sgCell(r.SGPutting),
		)
	}
	table.Render()
}

// PrintSnapshot prints a skill snapshot as category rows with the overall
// percentile, the sub-category percentiles and the strokes-gained value.
func PrintSnapshot(w io.Writer, s *model.SkillSnapshot) {
	if s == nil {
		fmt.Fprintln(w, "No skill snapshot stored.")
		return
	}
	dg := missing
	if s.DGID != nil {
		dg = strconv.FormatInt(*s.DGID, 10)
	}
	fmt.Fprintf(w, "\nSkills for %s  |  dg_id: %s  |  Updated: %s\n\n",
		s.PlayerID, dg, s.UpdatedAt.UTC().Format("2006-01-02 15:04"))

	table := newTable(w)
	table.Header("CATEGORY", "OVERALL", "SPLIT_1", "SPLIT_2", "SPLIT_3", "SPLIT_4", "SG/RD")
	table.Append("Driving", pctCell(s.DrivingOverall), "dist "+pctCell(s.DrivingDistance), "acc "+pctCell(s.DrivingAccuracy), "", "", sgCell(s.SGDriving))
	table.Append("Approach", pctCell(s.ApproachOverall),
		"50-100 "+pctCell(s.Approach50To100), "100-150 "+pctCell(s.Approach100To150),
		"150-200 "+pctCell(s.Approach150To200), "200+ "+pctCell(s.Approach200Plus), sgCell(s.SGApproach))
	table.Append("Around green", pctCell(s.AroundGreenOverall),
		"fwy "+pctCell(s.AroundGreenFairway), "rough "+pctCell(s.AroundGreenRough),
		"sand "+pctCell(s.AroundGreenBunker), "", sgCell(s.SGAroundGreen))
	table.Append("Putting", pctCell(s.PuttingOverall),
		"2-5ft "+pctCell(s.Putting2To5), "5-30ft "+pctCell(s.Putting5To30),
		"30+ft "+pctCell(s.Putting30Plus), "", sgCell(s.SGPutting))
	table.Render()
}

// PrintRunsTable lists recorded update runs.
func PrintRunsTable(w io.Writer, runs []model.UpdateRun) {
	table := newTable(w)
	table.Header("ID", "STARTED", "DURATION", "SOURCE", "PLAYERS", "RESULTS_OK", "SKILLS_OK", "STATUS")
	for _, r := range runs {
		dur := missing
		status := "running"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			status = "done"
			if r.Interrupted {
				status = "stopped"
			}
		}
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append(
			id,
			r.StartedAt.UTC().Format("2006-01-02 15:04"),
			dur,
			r.Source,
			strconv.Itoa(r.Players),
			strconv.Itoa(r.TournamentsOK),
			strconv.Itoa(r.SkillsOK),
			status,
		)
	}
	table.Render()
}

// PrintOverview prints database totals.
func PrintOverview(w io.Writer, ov model.DBOverview) {
	span := missing
	if ov.EarliestResult != nil && ov.LatestResult != nil {
		span = *ov.EarliestResult + " .. " + *ov.LatestResult
	}
	table := newTable(w)
	table.Header("PLAYERS", "WITH_RESULTS", "RESULT_ROWS", "SNAPSHOTS", "DATES", "RUNS")
	table.Append(
		strconv.Itoa(ov.Players),
		strconv.Itoa(ov.PlayersWithRows),
		strconv.Itoa(ov.ResultRows),
		strconv.Itoa(ov.Snapshots),
		span,
		strconv.Itoa(ov.Runs),
	)
	table.Render()
}

// PrintRows prints the output of an ad-hoc query.
func PrintRows(w io.Writer, cols []string, rows [][]string) {
	table := newTable(w)
	headers := make([]any, len(cols))
	for i, c := range cols {
		headers[i] = c
	}
	table.Header(headers...)
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = c
		}
		table.Append(cells...)
	}
	table.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func intCell(v *int) string {
	if v == nil {
		return missing
	}
	return strconv.Itoa(*v)
}

func sgCell(v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%+.2f", *v)
}

func pctCell(v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.0f%%", *v*100)
}
