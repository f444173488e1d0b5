package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
)

const testCatalog = `
[defaults]
palette = "moss"

[[level]]
name = "forest-01"
primary = "voronoi"
seed = 1234

[[level]]
name = "canyon-02"
primary = "shards"
secondary = "lines"
density = "dense"
seed = "0xff"
`

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "levels.toml")
	if err := os.WriteFile(path, []byte(testCatalog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestGenerateJobsFromArgs(t *testing.T) {
	opts := generateOpts{density: "dense", formats: "png,preview", previewSize: 64}
	jobs, err := opts.jobs([]string{"Voronoi", "0x2a"})
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("len(jobs) = %d, want 1", len(jobs))
	}
	j := jobs[0]
	if j.name != "voronoi-42" {
		t.Errorf("name = %q, want voronoi-42", j.name)
	}
	if j.opts.Seed != 42 || j.opts.Density != "dense" || j.opts.PreviewSize != 64 {
		t.Errorf("opts = %+v", j.opts)
	}
	if len(j.opts.Formats) != 2 {
		t.Errorf("formats = %v", j.opts.Formats)
	}
}

func TestGenerateJobsFromCatalog(t *testing.T) {
	path := writeCatalog(t)

	all, err := generateOpts{catalog: path, all: true}.jobs(nil)
	if err != nil {
		t.Fatalf("jobs --all: %v", err)
	}
	if len(all) != 2 || all[0].name != "forest-01" || all[1].name != "canyon-02" {
		t.Fatalf("jobs --all = %+v", all)
	}
	if all[0].opts.Palette != "moss" || all[0].opts.Level != "forest-01" {
		t.Errorf("forest opts = %+v", all[0].opts)
	}

	one, err := generateOpts{catalog: path, level: "canyon-02", macroCount: 9}.jobs(nil)
	if err != nil {
		t.Fatalf("jobs --level: %v", err)
	}
	req, err := one[0].opts.Request()
	if err != nil {
		t.Fatal(err)
	}
	if req.Primary != generator.PolygonShards || req.Secondary != generator.DirectionalLineFields {
		t.Errorf("families = %s/%s", req.Primary, req.Secondary)
	}
	if req.ZoneSeed != 0xff || req.MacroCount != 9 {
		t.Errorf("request = %s, want seed 255 and macro override 9", req)
	}
}

func TestGenerateJobsErrors(t *testing.T) {
	path := writeCatalog(t)
	tests := []struct {
		name string
		opts generateOpts
		args []string
		code errors.Code
	}{
		{"no args", generateOpts{}, nil, errors.ErrCodeInvalidInput},
		{"family only", generateOpts{}, []string{"bands"}, errors.ErrCodeInvalidInput},
		{"bad seed", generateOpts{}, []string{"bands", "-1"}, errors.ErrCodeInvalidInput},
		{"level without catalog", generateOpts{level: "x"}, nil, errors.ErrCodeInvalidInput},
		{"level and args", generateOpts{catalog: path, level: "forest-01"}, []string{"bands", "1"}, errors.ErrCodeInvalidInput},
		{"unknown level", generateOpts{catalog: path, level: "nope"}, nil, errors.ErrCodeLevelNotFound},
		{"missing catalog", generateOpts{catalog: "/nonexistent/levels.toml", all: true}, nil, errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.jobs(tt.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("code = %s, want %s (%v)", errors.GetCode(err), tt.code, err)
			}
		})
	}
}

func TestRunGenerateWritesArtifacts(t *testing.T) {
	out := t.TempDir()
	opts := generateOpts{
		output:      out,
		formats:     "png,preview,json",
		previewSize: 32,
		noCache:     true,
		noHistory:   true,
	}
	jobs, err := opts.jobs([]string{"bands", "7"})
	if err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	if err := c.runGenerate(context.Background(), jobs, opts); err != nil {
		t.Fatalf("runGenerate: %v", err)
	}

	for _, name := range []string{"macro.png", "meso.png", "accent.png", "micro.png", "preview.png", "snapshot.json"} {
		info, err := os.Stat(filepath.Join(out, "bands-7", name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestRunGenerateRejectsInvalidBeforeWriting(t *testing.T) {
	out := t.TempDir()
	opts := generateOpts{output: out, formats: "gif", noCache: true, noHistory: true}
	jobs, err := opts.jobs([]string{"bands", "7"})
	if err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, LogInfo)
	err = c.runGenerate(context.Background(), jobs, opts)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Fatalf("err = %v, want INVALID_FORMAT", err)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
}
