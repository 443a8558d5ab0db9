package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pable/pgaweekly/internal/config"
	"github.com/pable/pgaweekly/internal/datagolf"
	"github.com/pable/pgaweekly/internal/field"
	"github.com/pable/pgaweekly/internal/metrics"
	"github.com/pable/pgaweekly/internal/model"
	"github.com/pable/pgaweekly/internal/pipeline"
	"github.com/pable/pgaweekly/internal/report"
	"github.com/pable/pgaweekly/internal/resilience"
	"github.com/pable/pgaweekly/internal/resolver"
	"github.com/pable/pgaweekly/internal/storage"
)

// update command flags.
var (
	updTournamentID string
	updFieldFile    string
	updEvent        int
	updYear         int
	updLatest       bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run the weekly results and skills update",
	Long: `Builds the tournament field, then for every player refreshes their
tournament records and skill snapshot from Data Golf.

Field sources, first match wins:
  --tournament-id   players imported with 'pgaweekly field import'
  --field-file      CSV whose first column holds player names
  --event/--year    field of a specific Data Golf event
  --latest          field of the most recent completed event (default)

Re-running for the same week is safe: records are upserted.

Examples:
  pgaweekly update
  pgaweekly update --field-file field.csv --delay 2s
  pgaweekly update --event 14 --year 2024`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	f := updateCmd.Flags()
	f.StringVar(&updTournamentID, "tournament-id", "", "use the stored field of this tournament")
	f.StringVar(&updFieldFile, "field-file", "", "CSV file with one player name per row")
	f.IntVar(&updEvent, "event", 0, "Data Golf event id")
	f.IntVar(&updYear, "year", 0, "season of --event (default current year)")
	f.BoolVar(&updLatest, "latest", false, "use the most recent completed event")
	f.Duration("delay", 0, "pause between players (default 1s)")
	updateCmd.MarkFlagsMutuallyExclusive("tournament-id", "field-file", "event", "latest")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	dg := datagolf.NewClient(dataGolfConfig(cfg.DataGolf))
	defer dg.Close()

	fld, err := field.Load(ctx, field.Options{
		TournamentID: updTournamentID,
		File:         updFieldFile,
		Event:        updEvent,
		Year:         updYear,
	}, db, dg)
	if err != nil {
		return err
	}
	report.PrintFieldHeader(os.Stdout, fld.Tournament, fld.Source, len(fld.Players))

	run := model.UpdateRun{
		ID:        uuid.NewString(),
		Source:    fld.Source,
		StartedAt: time.Now().UTC(),
		Players:   len(fld.Players),
	}
	if err := db.StartRun(ctx, run); err != nil {
		logger.Warn("could not record run start", zap.Error(err))
	}

	rec := metrics.New()
	orch := pipeline.New(resolver.New(db, logger), dg, db, pipeline.Config{
		Delay:   cfg.Delay,
		Out:     os.Stdout,
		Logger:  logger,
		Metrics: rec,
	})
	sum := orch.Run(ctx, fld.Players)

	finishRun(db, run, sum)
	pushMetrics(rec)

	if sum.Interrupted {
		fmt.Fprintln(os.Stdout, "\nStopped by user")
	}
	report.PrintRunSummary(os.Stdout, sum)
	return nil
}

func dataGolfConfig(c config.DataGolf) datagolf.Config {
	circuit := resilience.DefaultConfig()
	circuit.Enabled = c.Circuit.Enabled
	circuit.FailureThreshold = c.Circuit.FailureThreshold
	circuit.OpenTimeout = c.Circuit.OpenTimeout
	return datagolf.Config{
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		RPS:       c.RPS,
		UserAgent: c.UserAgent,
		Circuit:   circuit,
		Logger:    logger,
	}
}

// finishRun records the outcome; it runs after an interrupt, so it does not
// use the run context.
func finishRun(db *storage.DB, run model.UpdateRun, sum pipeline.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	finished := sum.FinishedAt.UTC()
	run.FinishedAt = &finished
	run.TournamentsOK = sum.TournamentsOK
	run.SkillsOK = sum.SkillsOK
	run.Interrupted = sum.Interrupted
	if err := db.FinishRun(ctx, run); err != nil {
		logger.Warn("could not record run end", zap.String("run_id", run.ID), zap.Error(err))
	}
}

func pushMetrics(rec *metrics.Recorder) {
	if cfg.Metrics.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rec.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
		logger.Warn("metrics push failed", zap.String("url", cfg.Metrics.PushgatewayURL), zap.Error(err))
	}
}
