package memory

import (
	"context"
	"testing"
	"time"

	"carbonatlas/internal/state"
)

func report(at time.Time, ok bool) state.LoadReport {
	status := state.OutcomeLoaded
	if !ok {
		status = state.OutcomeFailed
	}
	return state.LoadReport{
		StartedAt: at,
		Outcomes:  []state.Outcome{{Resource: state.ResourceGeo, Status: status}},
	}
}

func TestHistoryNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	s := New(0)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := s.Record(ctx, report(base.Add(time.Duration(i)*time.Minute), i != 1)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	all, err := s.History(ctx, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 || all[0].ID != 3 || all[2].ID != 1 {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[1].OK {
		t.Fatalf("expected middle entry to be marked failed")
	}
	two, _ := s.History(ctx, 2)
	if len(two) != 2 || two[1].ID != 2 {
		t.Fatalf("unexpected limited history: %+v", two)
	}
}

func TestRecordEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := New(2)
	for i := 0; i < 5; i++ {
		_ = s.Record(ctx, report(time.Now(), true))
	}
	got, _ := s.History(ctx, 10)
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 4 {
		t.Fatalf("expected ids 5,4 got %+v", got)
	}
	if s.Driver() != "memory" || s.Close() != nil {
		t.Fatalf("unexpected driver metadata")
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(0)
	if err := s.Record(ctx, report(time.Now(), true)); err == nil {
		t.Fatalf("expected record to fail on canceled context")
	}
	if _, err := s.History(ctx, 1); err == nil {
		t.Fatalf("expected history to fail on canceled context")
	}
}
