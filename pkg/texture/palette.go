package texture

import (
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/backdrop/pkg/errors"
)

// Palette colours the tiers of a preview.
type Palette struct {
	Name       string
	Background colorful.Color
	Macro      colorful.Color
	Meso       colorful.Color
	Accent     colorful.Color
	Micro      colorful.Color
}

// DefaultPalette is used when no palette name is given.
const DefaultPalette = "slate"

var palettes = map[string][5]string{
	"slate": {"#1d232c", "#4c6a88", "#8fb3d1", "#e0c27a", "#d8e2ec"},
	"ember": {"#1f1410", "#8a3b1f", "#d9772b", "#f4d35e", "#f7e9d7"},
	"moss":  {"#121a14", "#3e5c3a", "#7fa66a", "#c9d98b", "#e4ecd9"},
	"mono":  {"#101010", "#5a5a5a", "#9c9c9c", "#d0d0d0", "#f2f2f2"},
}

// PaletteNames returns the built-in palette names, sorted.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPalette returns a built-in palette. The empty name selects
// DefaultPalette.
func LookupPalette(name string) (Palette, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultPalette
	}
	hex, ok := palettes[key]
	if !ok {
		return Palette{}, errors.New(errors.ErrCodeInvalidInput,
			"unknown palette %q (must be one of: %s)", name, strings.Join(PaletteNames(), ", "))
	}

	var cs [5]colorful.Color
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return Palette{}, errors.Wrap(errors.ErrCodeInternal, err, "palette %s", key)
		}
		cs[i] = c
	}
	return Palette{
		Name:       key,
		Background: cs[0],
		Macro:      cs[1],
		Meso:       cs[2],
		Accent:     cs[3],
		Micro:      cs[4],
	}, nil
}
