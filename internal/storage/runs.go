package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pable/pgaweekly/internal/model"
)

// StartRun records the beginning of an update run.
func (db *DB) StartRun(ctx context.Context, run model.UpdateRun) error {
	_, err := db.conn.NamedExecContext(ctx, `
		INSERT INTO update_runs (id, source, started_at, finished_at, players, tournaments_ok, skills_ok, interrupted)
		VALUES (:id, :source, :started_at, :finished_at, :players, :tournaments_ok, :skills_ok, :interrupted)`, run)
	if err != nil {
		return errors.Wrap(err, "insert update run")
	}
	return nil
}

// FinishRun stores the final counters of a run.
func (db *DB) FinishRun(ctx context.Context, run model.UpdateRun) error {
	res, err := db.conn.NamedExecContext(ctx, `
		UPDATE update_runs
		SET finished_at = :finished_at, players = :players, tournaments_ok = :tournaments_ok,
		    skills_ok = :skills_ok, interrupted = :interrupted
		WHERE id = :id`, run)
	if err != nil {
		return errors.Wrap(err, "update run")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Newf("run %s not found", run.ID)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]model.UpdateRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.UpdateRun
	err := db.conn.SelectContext(ctx, &out, db.conn.Rebind(`
		SELECT id, source, started_at, finished_at, players, tournaments_ok, skills_ok, interrupted
		FROM update_runs ORDER BY started_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, errors.Wrap(err, "select runs")
	}
	return out, nil
}

// Overview returns row counts and the stored date range.
func (db *DB) Overview(ctx context.Context) (model.DBOverview, error) {
	var ov model.DBOverview
	err := db.conn.GetContext(ctx, &ov, `
		SELECT
			(SELECT COUNT(*) FROM pga_players) AS players,
			(SELECT COUNT(*) FROM historical_tournament_results) AS result_rows,
			(SELECT COUNT(DISTINCT pga_player_id) FROM historical_tournament_results) AS players_with_rows,
			(SELECT COUNT(*) FROM player_skill_snapshots) AS snapshots,
			(SELECT MIN(tournament_date) FROM historical_tournament_results) AS earliest_result,
			(SELECT MAX(tournament_date) FROM historical_tournament_results) AS latest_result,
			(SELECT COUNT(*) FROM update_runs) AS runs`)
	if err != nil {
		return ov, errors.Wrap(err, "overview")
	}
	return ov, nil
}

// QueryRaw runs an arbitrary query and returns column names and stringified rows.
func (db *DB) QueryRaw(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := db.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, nil, errors.Wrap(err, "query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, nil, err
		}
		rec := make([]string, len(vals))
		for i, v := range vals {
			rec[i] = cellString(v)
		}
		out = append(out, rec)
	}
	return cols, out, rows.Err()
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}
