package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
)

const sample = `
[defaults]
density = "sparse"
meso_count = 6
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
macro_count = 5
seed = "0xff"
palette = "ember"

[[level]]
name = "tide-03"
primary = "waves"
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	names := c.Names()
	if strings.Join(names, ",") != "forest-01,canyon-02,tide-03" {
		t.Errorf("Names = %v", names)
	}

	forest, err := c.Resolve("forest-01")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if forest.Primary != generator.VoronoiRegions || forest.Secondary != generator.None {
		t.Errorf("forest families = %s/%s", forest.Primary, forest.Secondary)
	}
	if forest.Density != generator.Sparse || forest.MesoCount != 6 || forest.MacroCount != 4 || forest.MicroCount != 3 {
		t.Errorf("forest defaults not applied: %+v", forest)
	}
	if forest.ZoneSeed != 1234 {
		t.Errorf("forest seed = %d", forest.ZoneSeed)
	}

	canyon, _ := c.Lookup("canyon-02")
	if canyon.Request.Density != generator.Dense || canyon.Request.MacroCount != 5 {
		t.Errorf("canyon overrides not applied: %+v", canyon.Request)
	}
	if canyon.Request.ZoneSeed != 0xff || canyon.Derived {
		t.Errorf("canyon seed = %d derived=%v", canyon.Request.ZoneSeed, canyon.Derived)
	}
	if canyon.Palette != "ember" {
		t.Errorf("canyon palette = %q", canyon.Palette)
	}

	tide, _ := c.Lookup("tide-03")
	if !tide.Derived || tide.Request.ZoneSeed != DeriveSeed("tide-03") {
		t.Errorf("tide seed = %d derived=%v", tide.Request.ZoneSeed, tide.Derived)
	}
	if tide.Palette != "moss" {
		t.Errorf("tide palette = %q, want default moss", tide.Palette)
	}
}

func TestResolveUnknownLevel(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = c.Resolve("desert-99")
	if !errors.Is(err, errors.ErrCodeLevelNotFound) {
		t.Errorf("err = %v, want LEVEL_NOT_FOUND", err)
	}
}

func TestDeriveSeed(t *testing.T) {
	// FNV-1a 64 of the empty string is the offset basis.
	if got := DeriveSeed(""); got != 0xcbf29ce484222325 {
		t.Errorf("DeriveSeed(\"\") = %#x", got)
	}
	if DeriveSeed("a") == DeriveSeed("b") {
		t.Error("different names should derive different seeds")
	}
	if DeriveSeed("level") != DeriveSeed("level") {
		t.Error("DeriveSeed should be deterministic")
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"syntax", "[[level]\nname = 1"},
		{"unknown key", "[[level]]\nname = \"a\"\nprimary = \"waves\"\ncolour = \"red\""},
		{"missing name", "[[level]]\nprimary = \"waves\""},
		{"bad name", "[[level]]\nname = \"a b\"\nprimary = \"waves\""},
		{"missing primary", "[[level]]\nname = \"a\""},
		{"unknown family", "[[level]]\nname = \"a\"\nprimary = \"plaid\""},
		{"unknown secondary", "[[level]]\nname = \"a\"\nprimary = \"waves\"\nsecondary = \"plaid\""},
		{"unknown density", "[[level]]\nname = \"a\"\nprimary = \"waves\"\ndensity = \"thick\""},
		{"count out of range", "[[level]]\nname = \"a\"\nprimary = \"waves\"\nmeso_count = 500"},
		{"negative seed", "[[level]]\nname = \"a\"\nprimary = \"waves\"\nseed = -1"},
		{"bad seed string", "[[level]]\nname = \"a\"\nprimary = \"waves\"\nseed = \"0xzz\""},
		{"float seed", "[[level]]\nname = \"a\"\nprimary = \"waves\"\nseed = 1.5"},
		{"bad palette", "[[level]]\nname = \"a\"\nprimary = \"waves\"\npalette = \"neon\""},
		{"duplicate", "[[level]]\nname = \"a\"\nprimary = \"waves\"\n[[level]]\nname = \"a\"\nprimary = \"bands\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if !errors.Is(err, errors.ErrCodeInvalidCatalog) {
				t.Errorf("err = %v, want INVALID_CATALOG", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "levels.toml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d", c.Len())
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
}

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	entries := c.Entries()
	entries[0].Name = "mutated"
	if c.Names()[0] != "forest-01" {
		t.Error("Entries should return a copy")
	}
}

func TestExampleCatalog(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "examples", "levels.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Len() == 0 {
		t.Error("example catalog should define levels")
	}
}
