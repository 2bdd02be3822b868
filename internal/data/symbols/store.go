// # internal/data/symbols/store.go

// Package symbols persists correlated projects in SQLite, one run per
// build, so that entities, calls and I/O can be queried after the fact.
package symbols

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Run struct {
	ID         string
	ProjectKey string
	Timestamp  time.Time
	Files      int
	Modules    int
	Procedures int
	Types      int
	Warnings   int
}

type EntityRecord struct {
	Path       string
	Kind       string
	Name       string
	ParentPath string
	File       string
	Line       int
	NumLines   int
	Permission string
	Hidden     bool
}

type CallRecord struct {
	Caller string
	Chain  string
	// Callee is empty for calls correlation could not resolve.
	Callee string
	Line   int
}

type IORecord struct {
	UsedIn string
	Unit   string
	File   string
	Seq    int
	Kind   string
	Raw    string
	Line   int
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("symbol store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("symbol store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create symbol store directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode rebuilds.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite symbol store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite symbol store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SaveRun records the correlated project and its I/O master list under a
// new run id.
func (s *Store) SaveRun(ctx context.Context, projectKey string, p *project.Project, sessions []crosswalk.IOSession) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		projectKey = "default"
	}
	run := Run{
		ID:         uuid.NewString(),
		ProjectKey: projectKey,
		Timestamp:  time.Now().UTC(),
		Files:      len(p.Files),
		Modules:    len(p.Modules),
		Procedures: len(p.Procedures),
		Types:      len(p.Types),
		Warnings:   len(p.Warnings),
	}

	err := s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := writeRun(ctx, tx, run, p, sessions); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func writeRun(ctx context.Context, tx *sql.Tx, run Run, p *project.Project, sessions []crosswalk.IOSession) error {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (run_id, project_key, ts_utc, file_count, module_count, procedure_count, type_count, warning_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.ProjectKey, run.Timestamp.Format(time.RFC3339Nano),
		run.Files, run.Modules, run.Procedures, run.Types, run.Warnings,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	entStmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO entities (run_id, path, kind, name, parent_path, file_path, line_number, num_lines, permission, hidden)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entity insert: %w", err)
	}
	defer entStmt.Close()

	var insertErr error
	for _, f := range p.Files {
		model.Walk(f, func(e model.Entity) bool {
			if insertErr != nil {
				return false
			}
			n := e.Base()
			parent := ""
			if n.Parent != nil {
				parent = model.Path(n.Parent)
			}
			path := model.Path(e)
			if sf, ok := e.(*model.SourceFile); ok {
				path = sf.Path
			}
			if _, err := entStmt.ExecContext(ctx, run.ID, path, e.Kind().String(), n.Name, parent,
				n.File, n.Line, n.NumLines, n.Permission, n.Hidden); err != nil {
				insertErr = fmt.Errorf("insert entity %s: %w", path, err)
				return false
			}
			return true
		})
		if insertErr != nil {
			return insertErr
		}
	}

	callStmt, err := tx.PrepareContext(ctx, `
INSERT INTO calls (run_id, caller_path, chain, callee_path, line_number) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare call insert: %w", err)
	}
	defer callStmt.Close()
	for _, u := range crosswalk.Units(p) {
		caller := model.Path(u)
		for _, c := range model.ExecOf(u).Calls {
			callee := ""
			if c.Target != nil {
				callee = model.Path(c.Target)
			}
			if _, err := callStmt.ExecContext(ctx, run.ID, caller, strings.Join(c.Chain, "%"), callee, c.Line); err != nil {
				return fmt.Errorf("insert call from %s: %w", caller, err)
			}
		}
	}

	ioStmt, err := tx.PrepareContext(ctx, `
INSERT INTO io_operations (run_id, used_in, unit, file_key, seq, kind, raw_line, line_number)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare io insert: %w", err)
	}
	defer ioStmt.Close()
	for _, sess := range sessions {
		for i, op := range sess.Operations {
			if _, err := ioStmt.ExecContext(ctx, run.ID, sess.Path, sess.Unit, sess.File, i, op.Kind, op.RawLine, op.Line); err != nil {
				return fmt.Errorf("insert io operation of %s: %w", sess.Path, err)
			}
		}
	}
	return nil
}

// Runs lists the runs of a project, oldest first.
func (s *Store) Runs(ctx context.Context, projectKey string) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectKey = strings.TrimSpace(projectKey); projectKey == "" {
		projectKey = "default"
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, project_key, ts_utc, file_count, module_count, procedure_count, type_count, warning_count
FROM runs WHERE project_key = ? ORDER BY ts_utc ASC, run_id ASC`, projectKey)
	if err != nil {
		return nil, fmt.Errorf("load runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r     Run
			tsRaw string
		)
		if err := rows.Scan(&r.ID, &r.ProjectKey, &tsRaw, &r.Files, &r.Modules, &r.Procedures, &r.Types, &r.Warnings); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		r.Timestamp = ts.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}

// Entities returns the entities of a run whose name matches, case
// insensitively. An empty name returns every entity; kinds filter by kind.
func (s *Store) Entities(ctx context.Context, runID, name string, kinds ...string) ([]EntityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT path, kind, name, parent_path, file_path, line_number, num_lines, permission, hidden
FROM entities WHERE run_id = ?`
	args := []any{runID}
	if name != "" {
		query += " AND lower(name) = lower(?)"
		args = append(args, name)
	}
	if len(kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(", ?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, k)
		}
	}
	query += " ORDER BY file_path, line_number, path"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	defer rows.Close()

	var out []EntityRecord
	for rows.Next() {
		var r EntityRecord
		if err := rows.Scan(&r.Path, &r.Kind, &r.Name, &r.ParentPath, &r.File, &r.Line, &r.NumLines, &r.Permission, &r.Hidden); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}
	return out, nil
}

// Calls returns the calls of a run, optionally only the unresolved ones.
func (s *Store) Calls(ctx context.Context, runID string, unresolvedOnly bool) ([]CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT caller_path, chain, callee_path, line_number FROM calls WHERE run_id = ?`
	if unresolvedOnly {
		query += " AND callee_path = ''"
	}
	query += " ORDER BY caller_path, line_number, chain"
	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("load calls: %w", err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		var c CallRecord
		if err := rows.Scan(&c.Caller, &c.Chain, &c.Callee, &c.Line); err != nil {
			return nil, fmt.Errorf("scan call row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call rows: %w", err)
	}
	return out, nil
}

// IOOperations returns the I/O timeline of a run for one file key, or for
// every file when file is empty.
func (s *Store) IOOperations(ctx context.Context, runID, file string) ([]IORecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT used_in, unit, file_key, seq, kind, raw_line, line_number FROM io_operations WHERE run_id = ?`
	args := []any{runID}
	if file != "" {
		query += " AND file_key = ?"
		args = append(args, file)
	}
	query += " ORDER BY used_in, file_key, seq"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load io operations: %w", err)
	}
	defer rows.Close()

	var out []IORecord
	for rows.Next() {
		var r IORecord
		if err := rows.Scan(&r.UsedIn, &r.Unit, &r.File, &r.Seq, &r.Kind, &r.Raw, &r.Line); err != nil {
			return nil, fmt.Errorf("scan io row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate io rows: %w", err)
	}
	return out, nil
}

// Prune deletes all but the newest keep runs of a project.
func (s *Store) Prune(ctx context.Context, projectKey string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM runs WHERE project_key = ? AND run_id NOT IN (
  SELECT run_id FROM runs WHERE project_key = ? ORDER BY ts_utc DESC, run_id DESC LIMIT ?
)`, projectKey, projectKey, keep)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
