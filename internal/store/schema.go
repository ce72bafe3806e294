// Package store persists groups, items, sessions and the learner profile in SQL.
//
// SQLite is the default dialect; Postgres is supported through the same queries, written
// with '?' placeholders and rebound per driver.
package store

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS word_groups (
	id                 TEXT PRIMARY KEY,
	name               TEXT NOT NULL DEFAULT '',
	sequence           INTEGER NOT NULL DEFAULT 0,
	unlocked           BOOLEAN NOT NULL DEFAULT 0,
	completed_sessions INTEGER NOT NULL DEFAULT 0,
	total_attempts     INTEGER NOT NULL DEFAULT 0,
	total_correct      INTEGER NOT NULL DEFAULT 0,
	accuracy           INTEGER NOT NULL DEFAULT 0,
	source_path        TEXT NOT NULL DEFAULT '',
	checksum           TEXT NOT NULL DEFAULT '',
	updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
	id             TEXT PRIMARY KEY,
	group_id       TEXT NOT NULL REFERENCES word_groups(id),
	term           TEXT NOT NULL,
	translation    TEXT NOT NULL,
	level          INTEGER NOT NULL DEFAULT 0,
	last_review_at DATETIME,
	next_review_at DATETIME NOT NULL,
	total_attempts INTEGER NOT NULL DEFAULT 0,
	total_correct  INTEGER NOT NULL DEFAULT 0,
	total_wrong    INTEGER NOT NULL DEFAULT 0,
	muted          BOOLEAN NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_group ON items(group_id);

CREATE TABLE IF NOT EXISTS learner (
	id              INTEGER PRIMARY KEY,
	daily_streak    INTEGER NOT NULL DEFAULT 0,
	last_session_at DATETIME
);

CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	group_id     TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL,
	completed_at DATETIME NOT NULL,
	total        INTEGER NOT NULL DEFAULT 0,
	correct      INTEGER NOT NULL DEFAULT 0,
	accuracy     INTEGER NOT NULL DEFAULT 0,
	daily_streak INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS answers (
	session_id  TEXT NOT NULL REFERENCES sessions(id),
	seq         INTEGER NOT NULL,
	item_id     TEXT NOT NULL,
	raw         TEXT NOT NULL,
	expected    TEXT NOT NULL,
	correct     BOOLEAN NOT NULL,
	near_match  BOOLEAN NOT NULL,
	answered_at DATETIME NOT NULL,
	PRIMARY KEY (session_id, seq)
);
`

// postgresSchemaSQL mirrors sqliteSchemaSQL with Postgres column types.
var postgresSchemaSQL = strings.NewReplacer(
	"DATETIME", "TIMESTAMPTZ",
	"BOOLEAN NOT NULL DEFAULT 0", "BOOLEAN NOT NULL DEFAULT FALSE",
).Replace(sqliteSchemaSQL)

// DB wraps a sqlx.DB with store operations.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Open connects to the database and applies the schema.
// For SQLite the DSN is a file path; pragmas are appended unless the DSN carries its own.
func Open(driver, dsn string) (*DB, error) {
	schema := sqliteSchemaSQL
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if !strings.Contains(dsn, "?") {
			dsn += "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
		}
	case DriverPostgres:
		schema = postgresSchemaSQL
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	conn, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if driver == DriverSQLite {
		// One writer at a time.
		conn.SetMaxOpenConns(1)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	db := &DB{conn: conn, driver: driver}
	if driver == DriverSQLite {
		if err := initFTS(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply fts schema: %w", err)
		}
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// q rebinds a '?' query for the active driver.
func (db *DB) q(query string) string {
	return db.conn.Rebind(query)
}
