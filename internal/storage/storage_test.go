package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pable/pgaweekly/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func seedPlayers(t *testing.T, db *DB, ps ...model.Player) {
	t.Helper()
	if _, err := db.ImportPlayers(context.Background(), ps); err != nil {
		t.Fatalf("ImportPlayers: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	cases := map[string]Dialect{
		"postgres://u:p@localhost/golf":   Postgres,
		"POSTGRESQL://localhost/golf":     Postgres,
		"/home/me/.pgaweekly/weekly.db":   SQLite,
		":memory:":                        SQLite,
		"postgres.db":                     SQLite,
	}
	for dsn, want := range cases {
		if got := DialectFor(dsn); got != want {
			t.Errorf("DialectFor(%q) = %s, want %s", dsn, got, want)
		}
	}
}

func TestOpenDetectsUpsertKeys(t *testing.T) {
	db := openMemDB(t)
	results, snaps := db.UpsertSupported()
	if !results || !snaps {
		t.Errorf("fresh schema should support upserts, got results=%v snapshots=%v", results, snaps)
	}
}

func TestRegistryLookups(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	seedPlayers(t, db,
		model.Player{ID: "p1", Name: "Rory McIlroy"},
		model.Player{ID: "p2", Name: "Xander Schauffele"},
		model.Player{ID: "p3", Name: "Ryo_Ishikawa"},
	)

	exact, err := db.PlayersByName(ctx, "Rory McIlroy")
	if err != nil {
		t.Fatalf("PlayersByName: %v", err)
	}
	if len(exact) != 1 || exact[0].ID != "p1" {
		t.Errorf("expected p1, got %+v", exact)
	}

	none, _ := db.PlayersByName(ctx, "rory mcilroy")
	if len(none) != 0 {
		t.Errorf("exact lookup should be case-sensitive, got %+v", none)
	}

	like, err := db.PlayersLike(ctx, "SCHAUFFELE")
	if err != nil {
		t.Fatalf("PlayersLike: %v", err)
	}
	if len(like) != 1 || like[0].ID != "p2" {
		t.Errorf("expected p2, got %+v", like)
	}

	// "_" must not act as a wildcard.
	wild, _ := db.PlayersLike(ctx, "o_I")
	if len(wild) != 1 || wild[0].ID != "p3" {
		t.Errorf("expected only the literal underscore match, got %+v", wild)
	}
}

func TestPlayersLikeFoldsNonASCII(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	seedPlayers(t, db,
		model.Player{ID: "p1", Name: "Ludvig Åberg"},
		model.Player{ID: "p2", Name: "Nicolai Højgaard"},
		model.Player{ID: "p3", Name: "Rasmus Højgaard"},
	)

	aberg, err := db.PlayersLike(ctx, "ÅBERG")
	if err != nil {
		t.Fatalf("PlayersLike: %v", err)
	}
	if len(aberg) != 1 || aberg[0].ID != "p1" {
		t.Errorf("expected p1, got %+v", aberg)
	}

	hojgaard, _ := db.PlayersLike(ctx, "HØJGAARD")
	if len(hojgaard) != 2 {
		t.Errorf("expected both Højgaards, got %+v", hojgaard)
	}
}

func TestImportPlayersRenames(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	seedPlayers(t, db, model.Player{ID: "p1", Name: "Matthias Schmid"})
	seedPlayers(t, db, model.Player{ID: "p1", Name: "Matti Schmid"})

	got, _ := db.PlayersByName(ctx, "Matti Schmid")
	if len(got) != 1 {
		t.Fatalf("expected renamed player, got %+v", got)
	}
	ov, _ := db.Overview(ctx)
	if ov.Players != 1 {
		t.Errorf("expected 1 player, got %d", ov.Players)
	}
}

func TestFieldImportAndLookup(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()
	seedPlayers(t, db,
		model.Player{ID: "p1", Name: "Viktor Hovland"},
		model.Player{ID: "p2", Name: "Collin Morikawa"},
		model.Player{ID: "p3", Name: "Sam Burns"},
	)

	n, err := db.ImportField(ctx, "t-100", []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("ImportField: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 links, got %d", n)
	}
	n, _ = db.ImportField(ctx, "t-100", []string{"p2"})
	if n != 0 {
		t.Errorf("re-linking should be a no-op, got %d", n)
	}

	names, err := db.FieldNames(ctx, "t-100")
	if err != nil {
		t.Fatalf("FieldNames: %v", err)
	}
	if strings.Join(names, "|") != "Collin Morikawa|Viktor Hovland" {
		t.Errorf("unexpected field %v", names)
	}

	empty, _ := db.FieldNames(ctx, "t-999")
	if len(empty) != 0 {
		t.Errorf("unknown tournament should have empty field, got %v", empty)
	}
}

func sampleResults(playerID string) []model.TournamentResult {
	return []model.TournamentResult{
		{
			PlayerID: playerID, TournamentName: "Memorial", CourseName: "Muirfield Village",
			TournamentDate: "2024-06-09", FinishPosition: ip(3), IsMadeCut: true,
			TotalScore: ip(281), SGTotal: fp(1.25), SGPutting: fp(0.1),
		},
		{
			PlayerID: playerID, TournamentName: "US Open", CourseName: "Pinehurst",
			TournamentDate: "2024-06-16", IsMadeCut: false, TotalScore: ip(148),
		},
	}
}

func TestUpsertTournamentResultsIdempotent(t *testing.T) {
	db := openMemDB(t)
	assertUpsertIdempotent(t, db)
}

// TestLegacyResultsTableFallsBack: a results table created without the
// unique key is written with delete-then-insert, with the same outcome.
func TestLegacyResultsTableFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	_, err = raw.Exec(`CREATE TABLE historical_tournament_results (
		pga_player_id TEXT NOT NULL,
		tournament_name TEXT NOT NULL,
		course_name TEXT NOT NULL DEFAULT '',
		tournament_date TEXT NOT NULL,
		finish_position INTEGER,
		is_made_cut BOOLEAN NOT NULL DEFAULT FALSE,
		total_score INTEGER,
		strokes_gained_total DOUBLE PRECISION,
		strokes_gained_putting DOUBLE PRECISION,
		strokes_gained_approach DOUBLE PRECISION,
		strokes_gained_around_green DOUBLE PRECISION,
		strokes_gained_off_tee DOUBLE PRECISION
	)`)
	raw.Close()
	if err != nil {
		t.Fatalf("create legacy table: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	db, err := Open(context.Background(), path, zap.New(core))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	results, snaps := db.UpsertSupported()
	if results {
		t.Error("legacy results table should not report upsert support")
	}
	if !snaps {
		t.Error("snapshot table was created fresh and should support upserts")
	}
	if logs.Len() != 1 {
		t.Errorf("expected exactly one fallback warning, got %d", logs.Len())
	}

	assertUpsertIdempotent(t, db)
}

func assertUpsertIdempotent(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		n, err := db.UpsertTournamentResults(ctx, sampleResults("p1"))
		if err != nil {
			t.Fatalf("run %d: UpsertTournamentResults: %v", i, err)
		}
		if n != 2 {
			t.Errorf("run %d: expected 2 rows written, got %d", i, n)
		}
	}

	changed := sampleResults("p1")[:1]
	changed[0].FinishPosition = nil
	changed[0].SGTotal = fp(-0.5)
	if _, err := db.UpsertTournamentResults(ctx, changed); err != nil {
		t.Fatalf("UpsertTournamentResults: %v", err)
	}

	got, err := db.PlayerResults(ctx, "p1")
	if err != nil {
		t.Fatalf("PlayerResults: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows after repeated writes, got %d", len(got))
	}
	// newest first
	if got[0].TournamentName != "US Open" || got[0].IsMadeCut {
		t.Errorf("unexpected first row %+v", got[0])
	}
	if got[0].SGTotal != nil {
		t.Errorf("US Open SGTotal should be NULL, got %v", *got[0].SGTotal)
	}
	mem := got[1]
	if mem.FinishPosition != nil {
		t.Errorf("replaced row should have NULL finish, got %d", *mem.FinishPosition)
	}
	if mem.SGTotal == nil || *mem.SGTotal != -0.5 {
		t.Errorf("replaced row SGTotal: want -0.5, got %v", mem.SGTotal)
	}
	if !mem.IsMadeCut || mem.TotalScore == nil || *mem.TotalScore != 281 {
		t.Errorf("replaced row lost values: %+v", mem)
	}
}

func TestUpsertTournamentResultsEmpty(t *testing.T) {
	db := openMemDB(t)
	n, err := db.UpsertTournamentResults(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("empty batch: n=%d err=%v", n, err)
	}
}

func TestSkillSnapshotReplace(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	dg := int64(10091)
	first := &model.SkillSnapshot{
		PlayerID: "p1", DGID: &dg,
		ApproachOverall: fp(0.91), PuttingOverall: fp(0.4), SGPutting: fp(-0.2),
		UpdatedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := db.UpsertSkillSnapshot(ctx, first); err != nil {
		t.Fatalf("UpsertSkillSnapshot: %v", err)
	}

	second := &model.SkillSnapshot{
		PlayerID: "p1", DGID: &dg,
		ApproachOverall: fp(0.93),
		UpdatedAt:       time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC),
	}
	if err := db.UpsertSkillSnapshot(ctx, second); err != nil {
		t.Fatalf("UpsertSkillSnapshot: %v", err)
	}

	got, err := db.SkillSnapshot(ctx, "p1")
	if err != nil {
		t.Fatalf("SkillSnapshot: %v", err)
	}
	if got == nil {
		t.Fatal("expected a snapshot")
	}
	if got.ApproachOverall == nil || *got.ApproachOverall != 0.93 {
		t.Errorf("approach_overall: want 0.93, got %v", got.ApproachOverall)
	}
	if got.PuttingOverall != nil || got.SGPutting != nil {
		t.Error("fields absent from the new snapshot must be NULL")
	}
	if !got.UpdatedAt.Equal(second.UpdatedAt) {
		t.Errorf("UpdatedAt: want %v, got %v", second.UpdatedAt, got.UpdatedAt)
	}

	none, err := db.SkillSnapshot(ctx, "nobody")
	if err != nil || none != nil {
		t.Errorf("missing snapshot: got %v err=%v", none, err)
	}
}

func TestRunsLifecycle(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	older := model.UpdateRun{ID: "run-1", Source: "latest", StartedAt: time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)}
	newer := model.UpdateRun{ID: "run-2", Source: "file:field.csv", StartedAt: time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)}
	for _, r := range []model.UpdateRun{older, newer} {
		if err := db.StartRun(ctx, r); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
	}

	done := newer.StartedAt.Add(40 * time.Minute)
	newer.FinishedAt = &done
	newer.Players, newer.TournamentsOK, newer.SkillsOK = 120, 110, 108
	newer.Interrupted = true
	if err := db.FinishRun(ctx, newer); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := db.FinishRun(ctx, model.UpdateRun{ID: "missing"}); err == nil {
		t.Error("finishing an unknown run should fail")
	}

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected run-2 first, got %+v", runs)
	}
	r := runs[0]
	if r.FinishedAt == nil || r.TournamentsOK != 110 || r.SkillsOK != 108 || !r.Interrupted {
		t.Errorf("finished run not stored: %+v", r)
	}
	if runs[1].FinishedAt != nil {
		t.Errorf("unfinished run should have NULL finished_at")
	}
}

func TestOverview(t *testing.T) {
	db := openMemDB(t)
	ctx := context.Background()

	ov, err := db.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.ResultRows != 0 || ov.EarliestResult != nil {
		t.Errorf("empty db overview: %+v", ov)
	}

	seedPlayers(t, db, model.Player{ID: "p1", Name: "A B"}, model.Player{ID: "p2", Name: "C D"})
	db.UpsertTournamentResults(ctx, sampleResults("p1"))

	ov, _ = db.Overview(ctx)
	if ov.Players != 2 || ov.ResultRows != 2 || ov.PlayersWithRows != 1 {
		t.Errorf("unexpected counts: %+v", ov)
	}
	if ov.EarliestResult == nil || *ov.EarliestResult != "2024-06-09" {
		t.Errorf("earliest: %v", ov.EarliestResult)
	}
	if ov.LatestResult == nil || *ov.LatestResult != "2024-06-16" {
		t.Errorf("latest: %v", ov.LatestResult)
	}
}

func TestQueryRaw(t *testing.T) {
	db := openMemDB(t)
	seedPlayers(t, db, model.Player{ID: "p1", Name: "Tony Finau"})

	cols, rows, err := db.QueryRaw(context.Background(), "SELECT id, name, NULL AS extra FROM pga_players")
	if err != nil {
		t.Fatalf("QueryRaw: %v", err)
	}
	if strings.Join(cols, ",") != "id,name,extra" {
		t.Errorf("cols: %v", cols)
	}
	if len(rows) != 1 || rows[0][1] != "Tony Finau" || rows[0][2] != "NULL" {
		t.Errorf("rows: %v", rows)
	}
}

func TestInsertSQL(t *testing.T) {
	q := insertSQL("t", []string{"a", "b", "c"}, []string{"a"}, true)
	want := "INSERT INTO t (a, b, c) VALUES (:a, :b, :c) ON CONFLICT (a) DO UPDATE SET b = excluded.b, c = excluded.c"
	if q != want {
		t.Errorf("got  %s\nwant %s", q, want)
	}
	if q := insertSQL("t", []string{"a"}, []string{"a"}, true); !strings.HasSuffix(q, "DO NOTHING") {
		t.Errorf("key-only insert should do nothing on conflict: %s", q)
	}
	if q := deleteSQL("t", []string{"a", "b"}); q != "DELETE FROM t WHERE a = :a AND b = :b" {
		t.Errorf("deleteSQL: %s", q)
	}
}
