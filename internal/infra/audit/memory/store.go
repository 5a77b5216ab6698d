// Package memory keeps the load audit trail in process memory.
package memory

import (
	"context"
	"sync"

	"carbonatlas/internal/audit/core"
	"carbonatlas/internal/state"
)

// Store is an in-memory audit recorder bounded to a maximum number of entries.
type Store struct {
	mu       sync.RWMutex
	entries  []core.Entry
	nextID   int64
	capacity int
}

var _ core.Recorder = (*Store)(nil)

// New returns a store retaining at most capacity entries; capacity <= 0 keeps all.
func New(capacity int) *Store {
	return &Store{capacity: capacity, nextID: 1}
}

// Driver implements core.Recorder.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Record appends report, evicting the oldest entry when full.
func (s *Store) Record(ctx context.Context, report state.LoadReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, core.Entry{ID: s.nextID, OK: report.OK(), Report: report})
	s.nextID++
	if s.capacity > 0 && len(s.entries) > s.capacity {
		s.entries = append([]core.Entry(nil), s.entries[len(s.entries)-s.capacity:]...)
	}
	return nil
}

// History implements core.Recorder.
func (s *Store) History(ctx context.Context, limit int) ([]core.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

// Close implements core.Recorder.
func (s *Store) Close() error { return nil }
