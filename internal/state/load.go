package state

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carbonatlas/internal/dataset"
)

var errNoSource = errors.New("no asset source configured")

// OutcomeStatus is the result of loading one resource.
type OutcomeStatus string

const (
	OutcomeLoaded OutcomeStatus = "loaded"
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome describes the load of a single resource.
type Outcome struct {
	Resource   Resource      `json:"resource"`
	Location   string        `json:"location"`
	Status     OutcomeStatus `json:"status"`
	Kind       FailureKind   `json:"kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	Rows       int           `json:"rows"`
	Bytes      int64         `json:"bytes"`
	Duration   time.Duration `json:"-"`
	DurationMS float64       `json:"duration_ms"`

	err *LoadError
}

// Err returns the outcome's *LoadError, or nil when it loaded.
func (o Outcome) Err() error {
	if o.err == nil {
		return nil
	}
	return o.err
}

// LoadReport summarizes one LoadData call.
type LoadReport struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcomes   []Outcome `json:"outcomes"`
}

// OK reports whether every resource loaded.
func (r LoadReport) OK() bool {
	for _, o := range r.Outcomes {
		if o.Status != OutcomeLoaded {
			return false
		}
	}
	return true
}

// Err joins the errors of every failed outcome.
func (r LoadReport) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if err := o.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Outcome returns the outcome recorded for res.
func (r LoadReport) Outcome(res Resource) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Resource == res {
			return o, true
		}
	}
	return Outcome{}, false
}

// LoadData fetches and parses the three resources and replaces each dataset
// field as soon as its own resource has loaded. A failed resource leaves its
// field untouched and does not stop the others. Selection fields are never
// modified. The returned error joins one *LoadError per failed resource.
func (s *Store) LoadData(ctx context.Context) (LoadReport, error) {
	report := LoadReport{StartedAt: s.now().UTC()}
	outcomes := make([]Outcome, len(Resources))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, res := range Resources {
		i, res := i, res
		g.Go(func() error {
			outcomes[i] = s.loadOne(ctx, res)
			return nil
		})
	}
	_ = g.Wait()

	report.Outcomes = outcomes
	report.FinishedAt = s.now().UTC()

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, report); err != nil {
			s.logger.Warn("record load report", zap.Error(err))
		}
	}
	return report, report.Err()
}

func (s *Store) loadOne(ctx context.Context, res Resource) Outcome {
	loc := s.locations.For(res)
	start := s.now()
	out := Outcome{Resource: res, Location: loc}

	fail := func(kind FailureKind, err error) Outcome {
		out.Status = OutcomeFailed
		out.Kind = kind
		out.err = &LoadError{Resource: res, Location: loc, Kind: kind, Err: err}
		out.Error = out.err.Error()
		s.finish(&out, start)
		s.logger.Error("dataset load failed",
			zap.String("resource", string(res)),
			zap.String("location", loc),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return out
	}

	if s.source == nil {
		return fail(KindUnreachable, errNoSource)
	}
	_, rc, err := s.source.Get(ctx, loc)
	if err != nil {
		return fail(KindUnreachable, err)
	}
	defer func() { _ = rc.Close() }()
	body := &countingReader{r: rc}

	switch res {
	case ResourceGeo:
		doc, err := dataset.ParseGeoJSON(body)
		if body.err != nil {
			return fail(KindUnreachable, body.err)
		}
		if err != nil {
			return fail(KindParse, err)
		}
		s.mu.Lock()
		s.geo = doc
		s.populated[res] = true
		s.mu.Unlock()
		out.Rows = doc.FeatureCount
	default:
		table, err := dataset.ParseCSV(body)
		if body.err != nil {
			return fail(KindUnreachable, body.err)
		}
		if err != nil {
			return fail(KindParse, err)
		}
		s.mu.Lock()
		if res == ResourceForestCarbon {
			s.forestCarbon = table
		} else {
			s.climateDisaster = table
		}
		s.populated[res] = true
		s.mu.Unlock()
		out.Rows = table.Len()
	}

	out.Status = OutcomeLoaded
	out.Bytes = body.n
	s.finish(&out, start)
	s.logger.Info("dataset loaded",
		zap.String("resource", string(res)),
		zap.String("location", loc),
		zap.Int("rows", out.Rows),
		zap.Int64("bytes", out.Bytes),
		zap.Duration("duration", out.Duration))
	return out
}

func (s *Store) finish(out *Outcome, start time.Time) {
	out.Duration = s.now().Sub(start)
	out.DurationMS = float64(out.Duration) / float64(time.Millisecond)
	s.metrics.ObserveLoad(string(out.Resource), out.Status == OutcomeLoaded, out.Duration, out.Rows)
}

// countingReader separates transport read failures from parse failures.
type countingReader struct {
	r   io.Reader
	n   int64
	err error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && !errors.Is(err, io.EOF) {
		c.err = err
	}
	return n, err
}
