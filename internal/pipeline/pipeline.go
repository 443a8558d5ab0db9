// Package pipeline runs the weekly reconciliation: for each player in the
// field, resolve the registry id, fetch the external profile, aggregate it
// and upsert the results and skill snapshot.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/pable/pgaweekly/internal/aggregator"
	"github.com/pable/pgaweekly/internal/logging"
	"github.com/pable/pgaweekly/internal/metrics"
	"github.com/pable/pgaweekly/internal/model"
	"github.com/pable/pgaweekly/internal/names"
	"github.com/pable/pgaweekly/internal/resolver"
)

// Resolver maps a registry name to its player.
type Resolver interface {
	Resolve(ctx context.Context, name string) (model.Player, error)
}

// Fetcher loads a player's external profile by the external spelling.
type Fetcher interface {
	FetchPlayer(ctx context.Context, name string) (*model.PlayerData, error)
}

// Store persists results and snapshots idempotently.
type Store interface {
	UpsertTournamentResults(ctx context.Context, results []model.TournamentResult) (int, error)
	UpsertSkillSnapshot(ctx context.Context, snap *model.SkillSnapshot) error
}

// Config holds the optional collaborators of an Orchestrator.
type Config struct {
	Delay   time.Duration // pause after each fetched player
	Out     io.Writer     // progress lines; nil discards
	Logger  *zap.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time
}

// Summary is the outcome of one run. It is complete even when the run was
// interrupted.
type Summary struct {
	Players       int
	Processed     int
	TournamentsOK int // players whose results were written
	SkillsOK      int // players whose snapshot was written
	ResultRows    int
	NotInRegistry int
	NoData        int
	Failed        int
	Interrupted   bool
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall time of the run.
func (s Summary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }

// Orchestrator owns the state of one sequential run.
type Orchestrator struct {
	resolver Resolver
	fetcher  Fetcher
	store    Store

	delay   time.Duration
	out     io.Writer
	log     *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// New returns an Orchestrator. Nil Out, Logger and Now get no-op or
// real-time defaults.
func New(r Resolver, f Fetcher, s Store, cfg Config) *Orchestrator {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		resolver: r,
		fetcher:  f,
		store:    s,
		delay:    cfg.Delay,
		out:      out,
		log:      logging.OrNop(cfg.Logger),
		metrics:  cfg.Metrics,
		now:      now,
	}
}

var (
	okColor   = color.New(color.FgGreen)
	skipColor = color.New(color.FgYellow)
	missColor = color.New(color.FgRed)
)

// Run processes players in order. It stops early when ctx is cancelled and
// returns the counts so far.
func (o *Orchestrator) Run(ctx context.Context, players []string) (sum Summary) {
	sum = Summary{Players: len(players), StartedAt: o.now()}
	defer func() {
		sum.FinishedAt = o.now()
		o.metrics.RunFinished(sum.Duration(), sum.FinishedAt, sum.Interrupted)
	}()

	for i, name := range players {
		if ctx.Err() != nil {
			sum.Interrupted = true
			break
		}
		o.metrics.Player()
		fmt.Fprintf(o.out, "[%d/%d] %s ", i+1, len(players), name)

		out := o.processPlayer(ctx, name, &sum)
		if out == interrupted {
			sum.Interrupted = true
			break
		}
		sum.Processed++

		if out == fetched && i < len(players)-1 && !o.wait(ctx) {
			sum.Interrupted = true
			break
		}
	}
	return sum
}

type outcome int

const (
	skipped outcome = iota
	fetched
	interrupted
)

// processPlayer handles one player and prints the rest of its progress line.
func (o *Orchestrator) processPlayer(ctx context.Context, name string, sum *Summary) outcome {
	log := o.log.With(zap.String("player", name))

	player, err := o.resolver.Resolve(ctx, name)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			sum.NotInRegistry++
			o.metrics.Skipped(metrics.ReasonNotInRegistry)
			missColor.Fprintln(o.out, "- not in registry")
			return skipped
		}
		if ctx.Err() != nil {
			fmt.Fprintln(o.out, "- interrupted")
			return interrupted
		}
		sum.Failed++
		o.metrics.Skipped(metrics.ReasonStoreError)
		log.Error("registry lookup failed", zap.Error(err))
		missColor.Fprintln(o.out, "- lookup failed")
		return skipped
	}
	log = log.With(zap.String("player_id", player.ID))

	data, err := o.fetcher.FetchPlayer(ctx, names.Alias(name))
	if ctx.Err() != nil {
		fmt.Fprintln(o.out, "- interrupted")
		return interrupted
	}
	if err != nil || data.Empty() {
		if err != nil {
			log.Warn("fetch failed", zap.Error(err))
		}
		sum.NoData++
		o.metrics.Skipped(metrics.ReasonNoData)
		skipColor.Fprintln(o.out, "- no data")
		return fetched
	}

	var status []string

	results := aggregator.AggregateRounds(data.Rounds, player.ID)
	if len(results) > 0 {
		n, err := o.store.UpsertTournamentResults(ctx, results)
		if err != nil {
			sum.Failed++
			o.metrics.Skipped(metrics.ReasonStoreError)
			log.Error("write tournament results", zap.Error(err), zap.Int("records", len(results)))
			status = append(status, "T:error")
		} else {
			sum.TournamentsOK++
			sum.ResultRows += n
			o.metrics.ResultsWritten(n)
			status = append(status, "T:"+strconv.Itoa(n))
		}
	}

	if snap := aggregator.BuildSkillSnapshot(data.Skills, player.ID, o.now()); snap != nil {
		if err := o.store.UpsertSkillSnapshot(ctx, snap); err != nil {
			sum.Failed++
			o.metrics.Skipped(metrics.ReasonStoreError)
			log.Error("write skill snapshot", zap.Error(err))
			status = append(status, "S:error")
		} else {
			sum.SkillsOK++
			o.metrics.SnapshotWritten()
			status = append(status, "S:"+formatPct(snap.ApproachOverall))
		}
	}

	if len(status) == 0 {
		fmt.Fprintln(o.out, "-")
		return fetched
	}
	okColor.Fprintln(o.out, "- "+strings.Join(status, " "))
	return fetched
}

// wait pauses for the configured delay. It returns false if ctx ended first.
func (o *Orchestrator) wait(ctx context.Context) bool {
	if o.delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(o.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func formatPct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
