// Package state holds the application's selection and loaded datasets.
//
// A Store is created once at start-up and shared with every collaborator that
// renders or serves the data. Datasets start empty and are replaced wholesale
// by LoadData; the selected year is changed only through ChangeSelectedYear.
package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbonatlas/internal/assets/core"
	"carbonatlas/internal/dataset"
)

// DefaultSelectedYear is the year selected before any user interaction.
const DefaultSelectedYear = 2006

// MetricsRecorder receives load and selection measurements.
type MetricsRecorder interface {
	ObserveLoad(resource string, success bool, duration time.Duration, rows int)
	SetSelectedYear(year int)
}

// LoadRecorder keeps a history of load attempts.
type LoadRecorder interface {
	Record(ctx context.Context, report LoadReport) error
}

// Selection is a snapshot of the selection fields.
type Selection struct {
	Year   int      `json:"selected_year"`
	States []string `json:"selected_states"`
}

// Store is the in-memory state container. It is safe for concurrent use.
type Store struct {
	mu              sync.RWMutex
	selectedYear    int
	selectedStates  []string
	forestCarbon    dataset.Table
	climateDisaster dataset.Table
	geo             dataset.GeoDocument
	populated       map[Resource]bool

	source      core.Source
	locations   Locations
	concurrency int
	logger      *zap.Logger
	metrics     MetricsRecorder
	recorder    LoadRecorder
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLocations overrides the asset keys read by LoadData.
func WithLocations(l Locations) Option { return func(s *Store) { s.locations = l } }

// WithLogger sets the logger used for load outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRecorder sets where load reports are recorded.
func WithRecorder(r LoadRecorder) Option { return func(s *Store) { s.recorder = r } }

// WithConcurrency bounds how many resources are fetched at once. 1 fetches
// them one after another in Resources order.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Store with default selection and empty datasets that loads
// from source.
func New(source core.Source, opts ...Option) *Store {
	s := &Store{
		selectedYear:    DefaultSelectedYear,
		selectedStates:  []string{},
		forestCarbon:    dataset.Table{Columns: []string{}, Rows: []dataset.Record{}},
		climateDisaster: dataset.Table{Columns: []string{}, Rows: []dataset.Record{}},
		populated:       make(map[Resource]bool, len(Resources)),
		source:          source,
		locations:       DefaultLocations(),
		concurrency:     len(Resources),
		logger:          zap.NewNop(),
		metrics:         nopMetrics{},
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetSelectedYear(s.selectedYear)
	return s
}

// ChangeSelectedYear overwrites the selected year. Any value is accepted.
func (s *Store) ChangeSelectedYear(year int) {
	s.mu.Lock()
	s.selectedYear = year
	s.mu.Unlock()
	s.metrics.SetSelectedYear(year)
}

// SelectedYear returns the selected year.
func (s *Store) SelectedYear() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedYear
}

// SelectedStates returns a copy of the selected state identifiers. Nothing
// mutates this list yet; it is exposed so collaborators can rely on its shape.
func (s *Store) SelectedStates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.selectedStates))
	copy(out, s.selectedStates)
	return out
}

// Selection returns both selection fields at once.
func (s *Store) Selection() Selection {
	return Selection{Year: s.SelectedYear(), States: s.SelectedStates()}
}

// ForestCarbon returns the forest and carbon table. The table is shared and
// must not be modified; LoadData replaces it rather than mutating it.
func (s *Store) ForestCarbon() dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forestCarbon
}

// ClimateDisaster returns the climate-related disasters table. Same sharing
// rules as ForestCarbon.
func (s *Store) ClimateDisaster() dataset.Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.climateDisaster
}

// GeoData returns the country boundaries document.
func (s *Store) GeoData() dataset.GeoDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.geo
}

// Status reports whether each dataset field has been populated.
func (s *Store) Status() map[Resource]FieldStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Resource]FieldStatus, len(Resources))
	for _, r := range Resources {
		out[r] = StatusEmpty
		if s.populated[r] {
			out[r] = StatusPopulated
		}
	}
	return out
}

type nopMetrics struct{}

func (nopMetrics) ObserveLoad(string, bool, time.Duration, int) {}
func (nopMetrics) SetSelectedYear(int)                          {}
