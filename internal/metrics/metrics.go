// Package metrics holds the counters of one update run. They live on a
// private registry and are pushed to a Pushgateway when one is configured.
package metrics

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "pgaweekly"

// Skip reasons.
const (
	ReasonNotInRegistry = "not_in_registry"
	ReasonNoData        = "no_data"
	ReasonStoreError    = "store_error"
)

// Recorder is safe to use as a nil pointer; every method is then a no-op.
type Recorder struct {
	registry *prometheus.Registry

	players     prometheus.Counter
	skipped     *prometheus.CounterVec
	resultRows  prometheus.Counter
	resultSets  prometheus.Counter
	snapshots   prometheus.Counter
	runDuration prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New returns a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		players: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "players_total",
			Help: "Players taken from the field.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "players_skipped_total",
			Help: "Players skipped, by reason.",
		}, []string{"reason"}),
		resultRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "result_rows_written_total",
			Help: "Tournament result rows upserted.",
		}),
		resultSets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "players_results_written_total",
			Help: "Players whose tournament results were written.",
		}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "skill_snapshots_written_total",
			Help: "Skill snapshots upserted.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_completed_unixtime",
			Help: "End time of the last run that was not interrupted.",
		}),
	}
	r.registry.MustRegister(r.players, r.skipped, r.resultRows, r.resultSets, r.snapshots, r.runDuration, r.lastSuccess)
	return r
}

// Player counts a player taken from the field.
func (r *Recorder) Player() {
	if r != nil {
		r.players.Inc()
	}
}

// Skipped counts a skipped player under one of the Reason constants.
func (r *Recorder) Skipped(reason string) {
	if r != nil {
		r.skipped.WithLabelValues(reason).Inc()
	}
}

// ResultsWritten counts one player's written results and their rows.
func (r *Recorder) ResultsWritten(rows int) {
	if r != nil {
		r.resultSets.Inc()
		r.resultRows.Add(float64(rows))
	}
}

// SnapshotWritten counts a written skill snapshot.
func (r *Recorder) SnapshotWritten() {
	if r != nil {
		r.snapshots.Inc()
	}
}

// RunFinished records the run's duration and, unless interrupted, its end time.
func (r *Recorder) RunFinished(d time.Duration, end time.Time, interrupted bool) {
	if r == nil {
		return
	}
	r.runDuration.Set(d.Seconds())
	if !interrupted {
		r.lastSuccess.Set(float64(end.Unix()))
	}
}

// Gatherer exposes the private registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.registry
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return errors.Wrapf(err, "push metrics to %s", url)
	}
	return nil
}
