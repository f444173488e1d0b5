package history

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/matzehuels/backdrop/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntry(level string, seed uint64) Entry {
	return Entry{
		Level:       level,
		Primary:     "voronoi",
		Density:     "normal",
		MacroCount:  4,
		MesoCount:   8,
		MicroCount:  3,
		Seed:        seed,
		PatternHash: "abc123",
		BiasBefore:  1.22,
		BiasAfter:   1.12,
		Iterations:  1,
		Converged:   true,
		Duration:    42 * time.Millisecond,
		Bytes:       2048,
	}
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := sampleEntry("forest-01", math.MaxUint64)
	stored, err := s.Record(ctx, want)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("Record did not assign an ID")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatal("Record did not set CreatedAt")
	}

	got, err := s.Get(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Seed != math.MaxUint64 {
		t.Errorf("Seed = %d, want %d", got.Seed, uint64(math.MaxUint64))
	}
	if got.Duration != want.Duration || !got.Converged || got.CacheHit {
		t.Errorf("got %+v", got)
	}
	if !got.CreatedAt.Equal(stored.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, stored.CreatedAt)
	}

	byPrefix, err := s.Get(ctx, stored.ID[:8])
	if err != nil {
		t.Fatalf("Get by prefix: %v", err)
	}
	if byPrefix.ID != stored.ID {
		t.Errorf("prefix lookup returned %s", byPrefix.ID)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("err = %v, want NOT_FOUND", err)
	}
}

func TestListOrderAndFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, level := range []string{"a", "b", "a", "c"} {
		e := sampleEntry(level, uint64(i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("got %d entries, want 4", len(all))
	}
	if all[0].Seed != 3 || all[3].Seed != 0 {
		t.Errorf("not newest first: seeds %d..%d", all[0].Seed, all[3].Seed)
	}

	onlyA, err := s.List(ctx, Filter{Level: "a"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("got %d entries for level a, want 2", len(onlyA))
	}

	limited, err := s.List(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d entries with limit 1", len(limited))
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := sampleEntry("", uint64(i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if _, err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	n, err := s.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 3 {
		t.Errorf("pruned %d, want 3", n)
	}
	left, _ := s.List(ctx, Filter{})
	if len(left) != 2 || left[0].Seed != 4 {
		t.Errorf("left %+v", left)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")
	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if p != filepath.Join("/tmp/xdg", "backdrop", "history.db") {
		t.Errorf("DefaultPath = %q", p)
	}
}
