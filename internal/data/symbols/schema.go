package symbols

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the newest migration this package knows.
const SchemaVersion = 2

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS runs (
  run_id TEXT PRIMARY KEY,
  project_key TEXT NOT NULL DEFAULT 'default',
  ts_utc TEXT NOT NULL,
  file_count INTEGER NOT NULL,
  module_count INTEGER NOT NULL,
  procedure_count INTEGER NOT NULL,
  type_count INTEGER NOT NULL,
  warning_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_project_ts ON runs(project_key, ts_utc);

CREATE TABLE IF NOT EXISTS entities (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  path TEXT NOT NULL,
  kind TEXT NOT NULL,
  name TEXT NOT NULL,
  parent_path TEXT NOT NULL DEFAULT '',
  file_path TEXT NOT NULL DEFAULT '',
  line_number INTEGER NOT NULL DEFAULT 0,
  num_lines INTEGER NOT NULL DEFAULT 0,
  permission TEXT NOT NULL DEFAULT '',
  hidden INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (run_id, kind, path)
);
CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(run_id, name);

CREATE TABLE IF NOT EXISTS calls (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  caller_path TEXT NOT NULL,
  chain TEXT NOT NULL,
  callee_path TEXT NOT NULL DEFAULT '',
  line_number INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(run_id, caller_path);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS io_operations (
  run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  used_in TEXT NOT NULL,
  unit TEXT NOT NULL,
  file_key TEXT NOT NULL,
  seq INTEGER NOT NULL,
  kind TEXT NOT NULL,
  raw_line TEXT NOT NULL,
  line_number INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_io_file ON io_operations(run_id, file_key);
`,
	},
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_utc TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
);
`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}
