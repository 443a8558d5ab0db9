package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"

	"github.com/pable/pgaweekly/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// Dialect names the SQL backend behind a DB.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// foldFunc is a Unicode-aware LOWER for SQLite, whose built-in only folds
// ASCII letters.
const foldFunc = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		})
}

// lower returns the case-folding SQL function for the dialect.
func (db *DB) lower() string {
	if db.dialect == Postgres {
		return "LOWER"
	}
	return foldFunc
}

// Upsert keys. A table whose declared schema lacks its key is written with
// delete-then-insert instead of ON CONFLICT.
var (
	resultsKey  = []string{"pga_player_id", "tournament_name", "tournament_date"}
	snapshotKey = []string{"player_id"}
)

// DB wraps a sqlx.DB for the results store.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
	log     *zap.Logger

	resultsUpsert  bool
	snapshotUpsert bool
}

// DialectFor picks the driver for a DSN: postgres:// and postgresql:// URLs
// go to PostgreSQL, anything else is a SQLite file path.
func DialectFor(dsn string) Dialect {
	d := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(d, "postgres://") || strings.HasPrefix(d, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Open connects to dsn, applies the schema and checks which upsert keys the
// existing tables declare.
func Open(ctx context.Context, dsn string, log *zap.Logger) (*DB, error) {
	db := &DB{dialect: DialectFor(dsn), log: logging.OrNop(log)}

	switch db.dialect {
	case Postgres:
		conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
		if err != nil {
			return nil, errors.Wrap(err, "open postgres")
		}
		db.conn = conn
	default:
		raw, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		// Every connection to ":memory:" is its own database.
		raw.SetMaxOpenConns(1)
		// sqlx keys bind style off the driver name; modernc registers "sqlite".
		db.conn = sqlx.NewDb(raw, "sqlite3")
	}

	if _, err := db.conn.ExecContext(ctx, schemaSQL); err != nil {
		db.conn.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	var err error
	if db.resultsUpsert, err = db.hasUniqueKey(ctx, "historical_tournament_results", resultsKey); err != nil {
		db.conn.Close()
		return nil, errors.Wrap(err, "inspect results table")
	}
	if db.snapshotUpsert, err = db.hasUniqueKey(ctx, "player_skill_snapshots", snapshotKey); err != nil {
		db.conn.Close()
		return nil, errors.Wrap(err, "inspect snapshot table")
	}
	if !db.resultsUpsert {
		db.log.Warn("results table has no unique key; using delete-then-insert",
			zap.Strings("key", resultsKey))
	}
	if !db.snapshotUpsert {
		db.log.Warn("snapshot table has no unique key; using delete-then-insert",
			zap.Strings("key", snapshotKey))
	}
	return db, nil
}

func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect reports the backend in use.
func (db *DB) Dialect() Dialect { return db.dialect }

// UpsertSupported reports whether results and snapshots are written with
// ON CONFLICT upserts.
func (db *DB) UpsertSupported() (results, snapshots bool) {
	return db.resultsUpsert, db.snapshotUpsert
}

// hasUniqueKey reports whether table declares a primary key or unique
// constraint over exactly cols.
func (db *DB) hasUniqueKey(ctx context.Context, table string, cols []string) (bool, error) {
	want := sortedKey(cols)

	var keys []string
	var err error
	switch db.dialect {
	case Postgres:
		keys, err = db.postgresUniqueKeys(ctx, table)
	default:
		keys, err = db.sqliteUniqueKeys(ctx, table)
	}
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		if k == want {
			return true, nil
		}
	}
	return false, nil
}

func (db *DB) sqliteUniqueKeys(ctx context.Context, table string) ([]string, error) {
	var idx []struct {
		Name   string `db:"name"`
		Unique bool   `db:"unique"`
	}
	if err := db.conn.SelectContext(ctx, &idx,
		`SELECT name, "unique" FROM pragma_index_list(?)`, table); err != nil {
		return nil, err
	}

	var keys []string
	for _, ix := range idx {
		if !ix.Unique {
			continue
		}
		var cols []string
		if err := db.conn.SelectContext(ctx, &cols,
			`SELECT name FROM pragma_index_info(?)`, ix.Name); err != nil {
			return nil, err
		}
		keys = append(keys, sortedKey(cols))
	}

	// A single-column TEXT primary key shows up in table_info, not always as an index.
	var pk []string
	if err := db.conn.SelectContext(ctx, &pk,
		`SELECT name FROM pragma_table_info(?) WHERE pk > 0`, table); err != nil {
		return nil, err
	}
	if len(pk) > 0 {
		keys = append(keys, sortedKey(pk))
	}
	return keys, nil
}

func (db *DB) postgresUniqueKeys(ctx context.Context, table string) ([]string, error) {
	var keys []string
	err := db.conn.SelectContext(ctx, &keys, `
		SELECT string_agg(a.attname, ',' ORDER BY a.attname)
		FROM pg_index ix
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1 AND ix.indisunique
		GROUP BY ix.indexrelid`, table)
	return keys, err
}

func sortedKey(cols []string) string {
	c := append([]string(nil), cols...)
	sort.Strings(c)
	return strings.Join(c, ",")
}
