package pipeline

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/cache"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/history"
	pkgio "github.com/matzehuels/backdrop/pkg/io"
	"github.com/matzehuels/backdrop/pkg/observability"
)

type recordedRuns struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *recordedRuns) Record(_ context.Context, e history.Entry) (history.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return e, nil
}

type countingHooks struct {
	observability.NoopGenerateHooks
	mu        sync.Mutex
	starts    int
	completes int
	corrected int
	encodes   int
}

func (h *countingHooks) OnGenerateStart(context.Context, string, uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.starts++
}

func (h *countingHooks) OnGenerateComplete(context.Context, string, uint64, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.completes++
}

func (h *countingHooks) OnBiasCorrected(context.Context, string, float64, float64, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.corrected++
}

func (h *countingHooks) OnEncodeComplete(context.Context, []string, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.encodes++
}

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	r := NewRunner(c, nil, nil)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestExecuteProducesArtifacts(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	result, err := r.Execute(context.Background(), Options{
		Primary: "voronoi",
		Seed:    1234,
		Formats: []string{FormatPNG, FormatPreview, FormatJSON},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []string{"accent.png", "macro.png", "meso.png", "micro.png", ArtifactPreview, ArtifactSnapshot}
	got := result.ArtifactNames()
	if len(got) != len(want) {
		t.Fatalf("artifacts = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("artifact[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	img, err := png.Decode(bytes.NewReader(result.Artifacts[ArtifactPreview]))
	if err != nil {
		t.Fatalf("decode preview: %v", err)
	}
	if b := img.Bounds(); b.Dx() != DefaultPreviewSize || b.Dy() != DefaultPreviewSize {
		t.Errorf("preview size = %v", b)
	}

	snap, err := pkgio.ReadJSON(bytes.NewReader(result.Artifacts[ArtifactSnapshot]))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Request != result.Request {
		t.Errorf("snapshot request = %+v, want %+v", snap.Request, result.Request)
	}

	if result.Sprites == nil {
		t.Fatal("Sprites should be set on a fresh run")
	}
	if result.Stats.BiasAfter > result.Stats.BiasBefore {
		t.Errorf("BiasAfter = %.3f exceeds BiasBefore %.3f", result.Stats.BiasAfter, result.Stats.BiasBefore)
	}
	if result.Stats.ArtifactBytes <= 0 {
		t.Error("ArtifactBytes should be positive")
	}
	if result.PatternHash == "" {
		t.Error("PatternHash should be set")
	}
}

func TestExecuteIsDeterministic(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := Options{Primary: "fractal", Secondary: "bands", Seed: 5, Formats: []string{FormatPNG}}

	a, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	b, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if a.RunID == b.RunID {
		t.Error("run IDs should differ")
	}
	for name, data := range a.Artifacts {
		if !bytes.Equal(data, b.Artifacts[name]) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestExecuteCaching(t *testing.T) {
	r := newTestRunner(t)
	opts := Options{Primary: "waves", Seed: 3, Formats: []string{FormatPNG, FormatJSON}}

	first, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheInfo.Hit {
		t.Error("first run should miss")
	}
	// four tiers, snapshot and bias diagnostics
	if first.CacheInfo.Stored != 6 {
		t.Errorf("Stored = %d, want 6", first.CacheInfo.Stored)
	}

	second, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheInfo.Hit {
		t.Fatal("second run should hit")
	}
	if second.Sprites != nil {
		t.Error("cache hit should not generate sprites")
	}
	if second.Stats.BiasAfter != first.Stats.BiasAfter {
		t.Errorf("cached BiasAfter = %v, want %v", second.Stats.BiasAfter, first.Stats.BiasAfter)
	}
	for name, data := range first.Artifacts {
		if !bytes.Equal(data, second.Artifacts[name]) {
			t.Errorf("%s differs between fresh and cached run", name)
		}
	}

	// Asking for an artifact that was never stored misses.
	opts.Formats = []string{FormatPreview}
	third, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if third.CacheInfo.Hit {
		t.Error("preview was never cached and should miss")
	}

	opts.Formats = []string{FormatPNG}
	opts.Refresh = true
	fourth, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fourth.CacheInfo.Hit {
		t.Error("refresh should bypass the cache")
	}
}

func TestExecuteRecordsHistory(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	runs := &recordedRuns{}
	r.History = runs

	result, err := r.Execute(context.Background(), Options{Primary: "lines", Seed: 8, Level: "canyon-03"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(runs.entries) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs.entries))
	}
	e := runs.entries[0]
	if e.ID != result.RunID.String() || e.Level != "canyon-03" || e.Primary != "lines" || e.Seed != 8 {
		t.Errorf("entry = %+v", e)
	}
	if e.PatternHash != result.PatternHash {
		t.Errorf("PatternHash = %q, want %q", e.PatternHash, result.PatternHash)
	}
}

func TestExecuteEmitsHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetGenerateHooks(hooks)
	defer observability.Reset()

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(context.Background(), Options{Primary: "bands", Seed: 1}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if hooks.starts != 1 || hooks.completes != 1 || hooks.corrected != 1 || hooks.encodes != 1 {
		t.Errorf("hooks = %d/%d/%d/%d, want 1 each", hooks.starts, hooks.completes, hooks.corrected, hooks.encodes)
	}
}

func TestExecuteInvalidOptions(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	_, err := r.Execute(context.Background(), Options{Primary: "plaid"})
	if !errors.Is(err, errors.ErrCodeInvalidFamily) {
		t.Errorf("err = %v, want INVALID_FAMILY", err)
	}
}

func TestExecuteCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, nil, nil)
	if _, err := r.Execute(ctx, Options{Primary: "waves"}); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestCheckStrict(t *testing.T) {
	biased := bias.Report{Ratio: 1.3}
	clean := bias.Report{Ratio: 1.0}

	if err := checkStrict(Options{}, biased); err != nil {
		t.Errorf("non-strict run should not fail: %v", err)
	}
	if err := checkStrict(Options{Strict: true}, clean); err != nil {
		t.Errorf("clean field should not fail: %v", err)
	}
	err := checkStrict(Options{Strict: true}, biased)
	if errors.ExitCode(err) != 3 {
		t.Errorf("ExitCode(%v) = %d, want 3", err, errors.ExitCode(err))
	}
}

func TestEncodeTint(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	opts := Options{Primary: "voronoi", Seed: 2}
	plain, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	opts.Tint = true
	opts.Palette = "ember"
	tinted, err := r.Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if bytes.Equal(plain.Artifacts["macro.png"], tinted.Artifacts["macro.png"]) {
		t.Error("tinted macro should differ from alpha macro")
	}
	img, err := png.Decode(bytes.NewReader(tinted.Artifacts["macro.png"]))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xffff {
		t.Errorf("tinted tiers should be opaque, alpha = %#x", a)
	}
}
