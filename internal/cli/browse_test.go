package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/generator"
)

func TestNewBrowseModel(t *testing.T) {
	m, err := newBrowseModel("shards", "dense", "0x10")
	if err != nil {
		t.Fatalf("newBrowseModel: %v", err)
	}
	if m.family() != generator.PolygonShards || m.density() != generator.Dense || m.Seed != 16 {
		t.Errorf("model = %s/%s/%d", m.family(), m.density(), m.Seed)
	}

	for _, bad := range [][3]string{
		{"plaid", "", "1"},
		{"none", "", "1"},
		{"bands", "thick", "1"},
		{"bands", "", "x"},
	} {
		if _, err := newBrowseModel(bad[0], bad[1], bad[2]); err == nil {
			t.Errorf("newBrowseModel(%q, %q, %q) succeeded", bad[0], bad[1], bad[2])
		}
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBrowseModelKeys(t *testing.T) {
	m, err := newBrowseModel("lines", "", "0")
	if err != nil {
		t.Fatal(err)
	}

	step := func(k string) {
		t.Helper()
		next, _ := m.Update(key(k))
		m = next.(BrowseModel)
	}

	step("left")
	if m.Seed != 0 {
		t.Errorf("seed went below zero: %d", m.Seed)
	}
	step("right")
	step("l")
	if m.Seed != 2 {
		t.Errorf("seed = %d, want 2", m.Seed)
	}
	step("up")
	if m.family() != generator.FractalLite {
		t.Errorf("up from first family = %s, want wrap to fractal", m.family())
	}
	step("down")
	step("j")
	if m.family() != generator.BandGradients {
		t.Errorf("family = %s, want bands", m.family())
	}
	step("d")
	if m.density() != generator.Dense {
		t.Errorf("density = %s, want dense", m.density())
	}

	next, cmd := m.Update(key("enter"))
	if !next.(BrowseModel).Chosen || cmd == nil {
		t.Error("enter should choose and quit")
	}
}

func TestBrowseModelPreview(t *testing.T) {
	m, err := newBrowseModel("waves", "", "5")
	if err != nil {
		t.Fatal(err)
	}
	m.Width, m.Height = 20, 10

	msg := m.render()()
	next, _ := m.Update(msg)
	m = next.(BrowseModel)
	if m.preview == nil {
		t.Fatal("preview not applied")
	}
	lines := strings.Split(m.preview.art, "\n")
	if len(lines) != 10 || len(lines[0]) != 20 {
		t.Errorf("art = %d lines of %d, want 10 of 20", len(lines), len(lines[0]))
	}
	if !strings.Contains(m.View(), "ratio") {
		t.Error("view should show the bias ratio")
	}

	// A preview for another request is stale and ignored.
	stale := msg.(previewMsg)
	stale.art = "stale"
	m.Seed++
	next, _ = m.Update(stale)
	if next.(BrowseModel).preview.art == "stale" {
		t.Error("stale preview replaced the current one")
	}
}

func TestShadeField(t *testing.T) {
	f := field.New(8, 4)
	f.Fill(func(x, y int) float64 {
		if x < 4 {
			return 0
		}
		return 1
	})
	got := shadeField(f, 4, 2)
	want := "  @@\n  @@"
	if got != want {
		t.Errorf("shadeField = %q, want %q", got, want)
	}
}
