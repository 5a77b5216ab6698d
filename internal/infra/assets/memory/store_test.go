package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"carbonatlas/internal/assets/core"
)

func TestStoreAllBranches(t *testing.T) {
	store := New()
	ctx := context.Background()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	store.PutString("a.csv", "v")
	store.PutString("a.csv", "v2")
	info, rc, err := store.Get(ctx, "a.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	if string(body) != "v2" || info.ContentType != "text/csv" || info.Size != 2 {
		t.Fatalf("unexpected asset %q %+v", body, info)
	}
	if _, err := store.Put(ctx, "b", strings.NewReader("x"), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if head, err := store.Head(ctx, "b"); err != nil || head.ContentType != "text/plain" {
		t.Fatalf("head: %+v %v", head, err)
	}
	if list, err := store.List(ctx, ""); err != nil || len(list) != 2 || list[0].Key != "a.csv" {
		t.Fatalf("list all: %v %+v", err, list)
	}
	if list, err := store.List(ctx, "b"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
}

func TestStoreFailGet(t *testing.T) {
	store := New()
	store.PutString("geo.geojson", "{}")
	boom := errors.New("unreachable")
	store.FailGet("geo.geojson", boom)
	if _, _, err := store.Get(context.Background(), "geo.geojson"); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	store.FailGet("geo.geojson", nil)
	if _, _, err := store.Get(context.Background(), "geo.geojson"); err != nil {
		t.Fatalf("expected cleared failure, got %v", err)
	}
}

func TestStoreGetHonoursContext(t *testing.T) {
	store := New()
	store.PutString("k", "v")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := store.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadError(t *testing.T) {
	if _, err := New().Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
