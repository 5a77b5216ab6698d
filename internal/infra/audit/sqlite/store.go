// Package sqlite persists the load audit trail to a local SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"carbonatlas/internal/audit/core"
	"carbonatlas/internal/state"
)

const defaultPath = "carbonatlas-audit.db"

// Store records load reports in a single SQLite table.
type Store struct {
	db *sql.DB
}

var _ core.Recorder = (*Store)(nil)

// NewStore opens (creating when needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between them.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS load_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		ok INTEGER NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create load_reports table: %w", err)
	}
	return &Store{db: db}, nil
}

// Driver implements core.Recorder.
func (s *Store) Driver() core.Driver { return core.DriverSQLite }

// Record implements core.Recorder.
func (s *Store) Record(ctx context.Context, report state.LoadReport) error {
	payload, err := core.EncodeReport(report)
	if err != nil {
		return err
	}
	ok := 0
	if report.OK() {
		ok = 1
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO load_reports(started_at, finished_at, ok, payload) VALUES(?, ?, ?, ?)`,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.FinishedAt.UTC().Format(time.RFC3339Nano),
		ok, payload); err != nil {
		return fmt.Errorf("insert load report: %w", err)
	}
	return nil
}

// History implements core.Recorder.
func (s *Store) History(ctx context.Context, limit int) ([]core.Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded.
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ok, payload FROM load_reports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select load reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []core.Entry
	for rows.Next() {
		var (
			entry   core.Entry
			ok      int
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &ok, &payload); err != nil {
			return nil, fmt.Errorf("scan load report: %w", err)
		}
		if entry.Report, err = core.DecodeReport(payload); err != nil {
			return nil, fmt.Errorf("load report %d: %w", entry.ID, err)
		}
		entry.OK = ok == 1
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate load reports: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
