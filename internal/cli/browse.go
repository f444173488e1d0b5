package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/generator"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// Browser styles
var (
	browseSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	browseNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	browseDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	browseFrameStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim)
)

// shades maps a value in [0, 1] to a character, darkest first.
const shades = " .:-=+*#%@"

var densities = []generator.Density{generator.Sparse, generator.Normal, generator.Dense}

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var family, density string
	var seed string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse seeds and families interactively",
		Long: `Browse patterns in the terminal.

The macro tier is drawn as shaded characters together with its center bias
ratio. Use left/right to step the seed, up/down to change family and d to
cycle density. Enter prints the generate command for the current pattern.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newBrowseModel(family, density, seed)
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(m).Run()
			if err != nil {
				return err
			}
			if bm, ok := final.(BrowseModel); ok && bm.Chosen {
				printNextStep("Generate it", fmt.Sprintf("%s generate %s %d --density %s -f png,preview",
					appName, bm.family(), bm.Seed, bm.density()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", generator.VoronoiRegions.String(), "initial family")
	cmd.Flags().StringVar(&density, "density", "", "initial density")
	cmd.Flags().StringVar(&seed, "seed", "1", "initial seed")

	return cmd
}

// =============================================================================
// BrowseModel - Interactive seed browser
// =============================================================================

// previewMsg carries a finished preview back to the model.
type previewMsg struct {
	req     compose.Request
	art     string
	report  bias.Report
	correct bias.Result
}

// BrowseModel is the bubbletea model for the seed browser.
type BrowseModel struct {
	Family  int // index into generator.Families
	Density int // index into densities
	Seed    uint64
	Chosen  bool

	Width  int // preview width in characters
	Height int // preview height in characters

	pending bool
	preview *previewMsg
}

func newBrowseModel(family, density, seed string) (BrowseModel, error) {
	f, err := generator.ParseFamily(family)
	if err != nil {
		return BrowseModel{}, err
	}
	if !f.Valid() {
		return BrowseModel{}, errors.New(errors.ErrCodeInvalidFamily, "browse needs a concrete family")
	}
	d, err := generator.ParseDensity(density)
	if err != nil {
		return BrowseModel{}, err
	}
	s, err := errors.ParseSeed(seed)
	if err != nil {
		return BrowseModel{}, err
	}

	m := BrowseModel{Seed: s, Width: 64, Height: 24}
	for i, v := range generator.Families {
		if v == f {
			m.Family = i
		}
	}
	for i, v := range densities {
		if v == d {
			m.Density = i
		}
	}
	return m, nil
}

func (m BrowseModel) family() generator.Family   { return generator.Families[m.Family] }
func (m BrowseModel) density() generator.Density { return densities[m.Density] }

func (m BrowseModel) request() compose.Request {
	req := compose.DefaultRequest(m.family(), m.Seed)
	req.Density = m.density()
	return req
}

func (m BrowseModel) Init() tea.Cmd {
	return m.render()
}

// render generates the current pattern off the UI goroutine.
func (m BrowseModel) render() tea.Cmd {
	req := m.request()
	w, h := m.Width, m.Height
	return func() tea.Msg {
		sprites := compose.New(nil).Generate(req)
		macro := texture.FieldFromImage(sprites.Macro.Image)
		return previewMsg{
			req:     req,
			art:     shadeField(macro, w, h),
			report:  sprites.Bias,
			correct: sprites.Correction,
		}
	}
}

func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.Chosen = true
			return m, tea.Quit
		case "left", "h":
			if m.Seed > 0 {
				m.Seed--
			}
		case "right", "l":
			m.Seed++
		case "up", "k":
			m.Family = (m.Family + len(generator.Families) - 1) % len(generator.Families)
		case "down", "j":
			m.Family = (m.Family + 1) % len(generator.Families)
		case "d":
			m.Density = (m.Density + 1) % len(densities)
		default:
			return m, nil
		}
		m.pending = true
		return m, m.render()
	case previewMsg:
		// Drop stale previews from keys pressed in quick succession.
		if msg.req == m.request() {
			m.preview = &msg
			m.pending = false
		}
	case tea.WindowSizeMsg:
		m.Width = max(16, min(msg.Width-4, 96))
		m.Height = max(8, msg.Height-10)
		return m, m.render()
	}
	return m, nil
}

func (m BrowseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Browse Patterns"))
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render("←/→ seed  ↑/↓ family  d density  ⏎ select  q quit"))
	b.WriteString("\n\n")

	for i, f := range generator.Families {
		if i == m.Family {
			b.WriteString(browseSelectedStyle.Render("▸ " + f.String()))
		} else {
			b.WriteString(browseNormalStyle.Render("  " + f.String()))
		}
		b.WriteString("  ")
	}
	b.WriteString("\n")
	b.WriteString(browseDimStyle.Render(fmt.Sprintf("  seed %d · %s", m.Seed, m.density())))
	b.WriteString("\n")

	if m.preview == nil {
		b.WriteString("\n" + browseDimStyle.Render("  generating..."))
		return b.String()
	}
	b.WriteString(browseFrameStyle.Render(m.preview.art))
	b.WriteString("\n")

	ratio := fmt.Sprintf("  ratio %.3f → %.3f", m.preview.correct.Before.Ratio, m.preview.report.Ratio)
	if m.preview.report.Biased() {
		b.WriteString(StyleWarning.Render(ratio + " (biased)"))
	} else {
		b.WriteString(StyleSuccess.Render(ratio))
	}
	if m.pending {
		b.WriteString(browseDimStyle.Render("  ..."))
	}
	return b.String()
}

// shadeField renders f as w×h characters, averaging each cell's block of
// pixels. Terminal cells are roughly twice as tall as wide, so callers pass a
// height of about half the width for square tiers.
func shadeField(f *field.Field, w, h int) string {
	w, h = min(w, f.Width), min(h, f.Height)
	var b strings.Builder
	for cy := 0; cy < h; cy++ {
		y0, y1 := cy*f.Height/h, (cy+1)*f.Height/h
		for cx := 0; cx < w; cx++ {
			x0, x1 := cx*f.Width/w, (cx+1)*f.Width/w
			v := field.Clamp01(f.Mean(x0, y0, max(1, x1-x0), max(1, y1-y0)))
			b.WriteByte(shades[int(v*float64(len(shades)-1)+0.5)])
		}
		if cy < h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
