package cli

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/backdrop/pkg/history"
)

func TestShortID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"3f2a9c1e-0000-4000-8000-000000000000", "3f2a9c1e"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := shortID(tt.in); got != tt.want {
			t.Errorf("shortID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []history.Entry{
		{ID: "11111111-aaaa", CreatedAt: now.Add(-2 * time.Hour), Level: "canyon-02", Primary: "shards", Density: "dense", BiasAfter: 1.02, Converged: true, Bytes: 2048},
		{ID: "22222222-bbbb", CreatedAt: now.Add(-time.Minute), Primary: "bands", Secondary: "lines", Seed: 7, Density: "normal", BiasAfter: 1.31, CacheHit: true},
	}
	out := renderHistory(entries, now)
	for _, want := range []string{"11111111", "canyon-02", "2 hours ago", "bands+lines #7", "1.310", "2.0 kB", iconCached} {
		if !strings.Contains(out, want) {
			t.Errorf("history table missing %q:\n%s", want, out)
		}
	}
}

func TestWithHistory(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	ctx := context.Background()

	err := withHistory(ctx, func(ctx context.Context, s *history.Store) error {
		_, err := s.Record(ctx, history.Entry{Primary: "waves", Density: "normal", Seed: 3})
		return err
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	var got []history.Entry
	err = withHistory(ctx, func(ctx context.Context, s *history.Store) error {
		var err error
		got, err = s.List(ctx, history.Filter{Primary: "waves"})
		return err
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Seed != 3 {
		t.Errorf("entries = %+v", got)
	}
}
