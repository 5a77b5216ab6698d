// Package postgres persists the load audit trail to Postgres through pgx.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"carbonatlas/internal/audit/core"
	"carbonatlas/internal/state"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/carbonatlas?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store records load reports in the load_reports table.
type Store struct {
	db *sql.DB
}

var _ core.Recorder = (*Store)(nil)

// NewStore connects using dsn (falls back to defaultDSN) and ensures the
// audit table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS load_reports (
		id BIGSERIAL PRIMARY KEY,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL,
		ok BOOLEAN NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure load_reports table: %w", err)
	}
	return &Store{db: db}, nil
}

// Driver implements core.Recorder.
func (s *Store) Driver() core.Driver { return core.DriverPostgres }

// Record implements core.Recorder.
func (s *Store) Record(ctx context.Context, report state.LoadReport) error {
	payload, err := core.EncodeReport(report)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO load_reports(started_at, finished_at, ok, payload) VALUES($1, $2, $3, $4)`,
		report.StartedAt.UTC(), report.FinishedAt.UTC(), report.OK(), string(payload)); err != nil {
		return fmt.Errorf("insert load report: %w", err)
	}
	return nil
}

// History implements core.Recorder.
func (s *Store) History(ctx context.Context, limit int) ([]core.Entry, error) {
	query := `SELECT id, ok, payload FROM load_reports ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select load reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []core.Entry
	for rows.Next() {
		var (
			entry   core.Entry
			payload []byte
		)
		if err := rows.Scan(&entry.ID, &entry.OK, &payload); err != nil {
			return nil, fmt.Errorf("scan load report: %w", err)
		}
		if entry.Report, err = core.DecodeReport(payload); err != nil {
			return nil, fmt.Errorf("load report %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate load reports: %w", err)
	}
	return entries, nil
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
