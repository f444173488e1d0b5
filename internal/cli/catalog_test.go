package cli

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/matzehuels/backdrop/pkg/catalog"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
)

func TestRenderCatalog(t *testing.T) {
	cat, err := catalog.Parse([]byte(testCatalog))
	if err != nil {
		t.Fatal(err)
	}
	out := renderCatalog(cat)
	for _, want := range []string{"forest-01", "canyon-02", "voronoi", "shards", "lines", "0xff", "moss"} {
		if !strings.Contains(out, want) {
			t.Errorf("renderCatalog() missing %q:\n%s", want, out)
		}
	}
}

func TestSecondaryName(t *testing.T) {
	if got := secondaryName(generator.None); got != "—" {
		t.Errorf("secondaryName(None) = %q", got)
	}
	if got := secondaryName(generator.WaveInterference); got != "waves" {
		t.Errorf("secondaryName(waves) = %q", got)
	}
}

func TestCatalogShowUnknownLevel(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.catalogShowCommand()
	cmd.SetArgs([]string{writeCatalog(t), "nope"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.ExecuteContext(context.Background())
	if !errors.Is(err, errors.ErrCodeLevelNotFound) {
		t.Errorf("err = %v, want LEVEL_NOT_FOUND", err)
	}
}

func TestCatalogListMissingFile(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.catalogListCommand()
	cmd.SetArgs([]string{"missing.toml"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("expected an error for a missing catalog")
	}
}
