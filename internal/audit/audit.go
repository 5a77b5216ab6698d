// Package audit re-exports the load history contract and selects a recorder
// driver from configuration.
package audit

import (
	"context"
	"fmt"

	"carbonatlas/internal/audit/core"
	"carbonatlas/internal/infra/audit/memory"
	"carbonatlas/internal/infra/audit/postgres"
	"carbonatlas/internal/infra/audit/sqlite"
)

type (
	// Driver identifies an audit backend.
	Driver = core.Driver
	// Entry is one recorded load.
	Entry = core.Entry
	// Recorder persists and lists load reports.
	Recorder = core.Recorder
)

const (
	DriverMemory   = core.DriverMemory
	DriverSQLite   = core.DriverSQLite
	DriverPostgres = core.DriverPostgres
	// DriverNone disables the audit trail.
	DriverNone Driver = "none"
)

// DefaultMemoryCapacity bounds the memory driver when no capacity is set.
const DefaultMemoryCapacity = 100

// Config selects and configures an audit driver.
type Config struct {
	Driver   string
	DSN      string // sqlite: file path, postgres: connection string
	Capacity int    // memory: retained entries
}

// Open returns the Recorder selected by cfg.Driver. An empty or "none" driver
// returns a nil Recorder and no error.
func Open(ctx context.Context, cfg Config) (Recorder, error) {
	switch Driver(cfg.Driver) {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		capacity := cfg.Capacity
		if capacity == 0 {
			capacity = DefaultMemoryCapacity
		}
		return memory.New(capacity), nil
	case DriverSQLite:
		store, err := sqlite.NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := postgres.NewStore(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown audit driver %s", cfg.Driver)
	}
}
