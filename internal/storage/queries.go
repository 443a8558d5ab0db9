package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"

	"github.com/pable/pgaweekly/internal/model"
)

var resultColumns = []string{
	"pga_player_id",
	"tournament_name",
	"course_name",
	"tournament_date",
	"finish_position",
	"is_made_cut",
	"total_score",
	"strokes_gained_total",
	"strokes_gained_putting",
	"strokes_gained_approach",
	"strokes_gained_around_green",
	"strokes_gained_off_tee",
}

var snapshotColumns = []string{
	"player_id",
	"dg_id",
	"driving_overall",
	"driving_distance",
	"driving_accuracy",
	"approach_overall",
	"approach_50_100",
	"approach_100_150",
	"approach_150_200",
	"approach_200_plus",
	"around_green_overall",
	"around_green_fairway",
	"around_green_rough",
	"around_green_bunker",
	"putting_overall",
	"putting_2_5_feet",
	"putting_5_30",
	"putting_30_plus",
	"sg_driving",
	"sg_approach",
	"sg_around_green",
	"sg_putting",
	"skills_updated_at",
}

// ---- Registry ----

// PlayersByName returns registry players whose name equals name exactly.
func (db *DB) PlayersByName(ctx context.Context, name string) ([]model.Player, error) {
	var out []model.Player
	err := db.conn.SelectContext(ctx, &out,
		db.conn.Rebind(`SELECT id, name FROM pga_players WHERE name = ? ORDER BY id`), name)
	if err != nil {
		return nil, errors.Wrap(err, "select players by name")
	}
	return out, nil
}

// PlayersLike returns registry players whose name contains fragment,
// ignoring case.
func (db *DB) PlayersLike(ctx context.Context, fragment string) ([]model.Player, error) {
	var out []model.Player
	err := db.conn.SelectContext(ctx, &out,
		db.conn.Rebind(`SELECT id, name FROM pga_players WHERE `+db.lower()+`(name) LIKE ? ESCAPE '\' ORDER BY id`),
		"%"+escapeLike(strings.ToLower(fragment))+"%")
	if err != nil {
		return nil, errors.Wrap(err, "select players like")
	}
	return out, nil
}

// FieldNames returns the registry names of a tournament's field.
func (db *DB) FieldNames(ctx context.Context, tournamentID string) ([]string, error) {
	var out []string
	err := db.conn.SelectContext(ctx, &out, db.conn.Rebind(`
		SELECT p.name
		FROM tournament_players tp
		JOIN pga_players p ON p.id = tp.player_id
		WHERE tp.tournament_id = ?
		ORDER BY p.name`), tournamentID)
	if err != nil {
		return nil, errors.Wrapf(err, "select field for %s", tournamentID)
	}
	return out, nil
}

// ImportPlayers inserts or renames registry players. Returns rows written.
func (db *DB) ImportPlayers(ctx context.Context, players []model.Player) (int, error) {
	rows := make([]any, len(players))
	for i := range players {
		rows[i] = players[i]
	}
	err := db.writeKeyed(ctx, "pga_players", []string{"id", "name"}, []string{"id"}, true, rows)
	if err != nil {
		return 0, errors.Wrap(err, "import players")
	}
	return len(players), nil
}

type fieldEntry struct {
	TournamentID string `db:"tournament_id"`
	PlayerID     string `db:"player_id"`
}

// ImportField links players to a tournament. Existing links are kept.
func (db *DB) ImportField(ctx context.Context, tournamentID string, playerIDs []string) (int, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO tournament_players (tournament_id, player_id)
		VALUES (:tournament_id, :player_id)
		ON CONFLICT (tournament_id, player_id) DO NOTHING`)
	if err != nil {
		return 0, errors.Wrap(err, "prepare field insert")
	}
	defer stmt.Close()

	n := 0
	for _, id := range playerIDs {
		res, err := stmt.ExecContext(ctx, fieldEntry{TournamentID: tournamentID, PlayerID: id})
		if err != nil {
			return 0, errors.Wrapf(err, "link %s to %s", id, tournamentID)
		}
		if c, err := res.RowsAffected(); err == nil {
			n += int(c)
		}
	}
	return n, tx.Commit()
}

// ---- Results and snapshots ----

// UpsertTournamentResults writes a batch keyed by (player, tournament, date).
// An existing row for a key is fully replaced. The batch is one transaction.
func (db *DB) UpsertTournamentResults(ctx context.Context, results []model.TournamentResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	rows := make([]any, len(results))
	for i := range results {
		rows[i] = results[i]
	}
	if err := db.writeKeyed(ctx, "historical_tournament_results", resultColumns, resultsKey, db.resultsUpsert, rows); err != nil {
		return 0, errors.Wrapf(err, "upsert results for %s", results[0].PlayerID)
	}
	return len(results), nil
}

// UpsertSkillSnapshot replaces the player's snapshot.
func (db *DB) UpsertSkillSnapshot(ctx context.Context, snap *model.SkillSnapshot) error {
	if snap == nil {
		return nil
	}
	if err := db.writeKeyed(ctx, "player_skill_snapshots", snapshotColumns, snapshotKey, db.snapshotUpsert, []any{snap}); err != nil {
		return errors.Wrapf(err, "upsert snapshot for %s", snap.PlayerID)
	}
	return nil
}

// PlayerResults returns a player's stored results, newest first.
func (db *DB) PlayerResults(ctx context.Context, playerID string) ([]model.TournamentResult, error) {
	var out []model.TournamentResult
	q := fmt.Sprintf(`SELECT %s FROM historical_tournament_results
		WHERE pga_player_id = ?
		ORDER BY tournament_date DESC, tournament_name`, strings.Join(resultColumns, ", "))
	if err := db.conn.SelectContext(ctx, &out, db.conn.Rebind(q), playerID); err != nil {
		return nil, errors.Wrap(err, "select player results")
	}
	return out, nil
}

// SkillSnapshot returns the player's snapshot, or nil if none is stored.
func (db *DB) SkillSnapshot(ctx context.Context, playerID string) (*model.SkillSnapshot, error) {
	var s model.SkillSnapshot
	q := fmt.Sprintf(`SELECT %s FROM player_skill_snapshots WHERE player_id = ?`, strings.Join(snapshotColumns, ", "))
	err := db.conn.GetContext(ctx, &s, db.conn.Rebind(q), playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select snapshot")
	}
	return &s, nil
}

// writeKeyed writes rows into table in one transaction. With upsert it
// relies on ON CONFLICT over key; without, each key is deleted first.
func (db *DB) writeKeyed(ctx context.Context, table string, cols, key []string, upsert bool, rows []any) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ins, err := tx.PrepareNamedContext(ctx, insertSQL(table, cols, key, upsert))
	if err != nil {
		return errors.Wrap(err, "prepare insert")
	}
	defer ins.Close()

	var del *sqlx.NamedStmt
	if !upsert {
		del, err = tx.PrepareNamedContext(ctx, deleteSQL(table, key))
		if err != nil {
			return errors.Wrap(err, "prepare delete")
		}
		defer del.Close()
	}

	for _, r := range rows {
		if del != nil {
			if _, err := del.ExecContext(ctx, r); err != nil {
				return errors.Wrap(err, "delete existing")
			}
		}
		if _, err := ins.ExecContext(ctx, r); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSQL(table string, cols, key []string, upsert bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (:%s)",
		table, strings.Join(cols, ", "), strings.Join(cols, ", :"))
	if !upsert {
		return b.String()
	}

	isKey := make(map[string]bool, len(key))
	for _, k := range key {
		isKey[k] = true
	}
	var sets []string
	for _, c := range cols {
		if !isKey[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}
	if len(sets) == 0 {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(key, ", "))
		return b.String()
	}
	fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(key, ", "), strings.Join(sets, ", "))
	return b.String()
}

func deleteSQL(table string, key []string) string {
	conds := make([]string, len(key))
	for i, k := range key {
		conds[i] = k + " = :" + k
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, strings.Join(conds, " AND "))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
