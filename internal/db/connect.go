package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:examsvc.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/examsvc?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  questions_json TEXT NOT NULL,
  batches_json TEXT NOT NULL DEFAULT '[]',
  start_time BIGINT NOT NULL DEFAULT 0,
  end_time BIGINT NOT NULL DEFAULT 0,
  duration_minutes INTEGER NOT NULL DEFAULT 0,
  question_count INTEGER NOT NULL DEFAULT 0,
  passing_percentage REAL NOT NULL DEFAULT 0,
  show_results INTEGER NOT NULL DEFAULT 0,
  show_results_immediately INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  total_marks REAL NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  student_phone TEXT NOT NULL,
  status TEXT NOT NULL,
  questions_json TEXT NOT NULL DEFAULT '',
  answers_json TEXT NOT NULL DEFAULT '[]',
  score REAL NOT NULL DEFAULT 0,
  percentage REAL NOT NULL DEFAULT 0,
  grace_marks REAL NOT NULL DEFAULT 0,
  grace_reason TEXT NOT NULL DEFAULT '',
  started_at BIGINT NOT NULL,
  submitted_at BIGINT,
  time_spent_sec BIGINT NOT NULL DEFAULT 0,
  termination_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (test_id, student_phone)
);

CREATE TABLE IF NOT EXISTS students (
  phone TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  batches_json TEXT NOT NULL DEFAULT '[]',
  access_hash TEXT,
  created_at BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., AttemptSubmitted
  key TEXT NOT NULL,                         -- natural key: attempt/test id
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS tests (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  questions_json TEXT NOT NULL,
  batches_json TEXT NOT NULL DEFAULT '[]',
  start_time BIGINT NOT NULL DEFAULT 0,
  end_time BIGINT NOT NULL DEFAULT 0,
  duration_minutes INTEGER NOT NULL DEFAULT 0,
  question_count INTEGER NOT NULL DEFAULT 0,
  passing_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  show_results BOOLEAN NOT NULL DEFAULT FALSE,
  show_results_immediately BOOLEAN NOT NULL DEFAULT FALSE,
  status TEXT NOT NULL,
  total_marks DOUBLE PRECISION NOT NULL DEFAULT 0,
  created_by TEXT NOT NULL,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  test_id TEXT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  student_phone TEXT NOT NULL,
  status TEXT NOT NULL,
  questions_json TEXT NOT NULL DEFAULT '',
  answers_json TEXT NOT NULL DEFAULT '[]',
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  grace_marks DOUBLE PRECISION NOT NULL DEFAULT 0,
  grace_reason TEXT NOT NULL DEFAULT '',
  started_at BIGINT NOT NULL,
  submitted_at BIGINT,
  time_spent_sec BIGINT NOT NULL DEFAULT 0,
  termination_reason TEXT NOT NULL DEFAULT '',
  UNIQUE (test_id, student_phone)
);

CREATE TABLE IF NOT EXISTS students (
  phone TEXT PRIMARY KEY,
  name TEXT NOT NULL DEFAULT '',
  batches_json TEXT NOT NULL DEFAULT '[]',
  access_hash TEXT,
  created_at BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
