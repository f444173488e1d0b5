// Package generator implements the pattern families that synthesize raw
// scalar fields.
//
// # Families
//
// The set of families is closed; [Generate] dispatches on [Family]:
//
//   - [DirectionalLineFields]: repeating oriented bands with a sine warp
//   - [BandGradients]: a directional ramp mixed with periodic sine bands
//   - [VoronoiRegions]: filled cells (macro) or cell edges (detail tiers)
//   - [PolygonShards]: a jittered quad grid split into shaded triangles
//   - [WaveInterference]: a sum of oriented sine waves
//   - [FractalLite]: octaves of coherent noise
//
// [Accent] and [Micro] are family-independent noise layers used by the
// composer for the accent and micro tiers.
//
// # Determinism
//
// Every generator is a pure function of its [Params] and the draws it takes
// from the supplied [rng.RNG]. The order of draws is fixed and documented at
// the top of each generator; it decides the pattern produced for a seed, so
// reordering draws is a breaking change.
package generator

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

// Family selects the algorithm that produces a field.
type Family int

// Pattern families. None is the zero value and marks an absent secondary.
const (
	None Family = iota
	DirectionalLineFields
	BandGradients
	VoronoiRegions
	PolygonShards
	WaveInterference
	FractalLite
)

// Families lists every concrete family in declaration order.
var Families = []Family{
	DirectionalLineFields,
	BandGradients,
	VoronoiRegions,
	PolygonShards,
	WaveInterference,
	FractalLite,
}

var familyNames = map[Family]string{
	None:                  "none",
	DirectionalLineFields: "lines",
	BandGradients:         "bands",
	VoronoiRegions:        "voronoi",
	PolygonShards:         "shards",
	WaveInterference:      "waves",
	FractalLite:           "fractal",
}

// String returns the short family name used in flags, catalogs and URLs.
func (f Family) String() string {
	if name, ok := familyNames[f]; ok {
		return name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Valid reports whether f is one of the concrete families.
func (f Family) Valid() bool {
	return f >= DirectionalLineFields && f <= FractalLite
}

// ParseFamily resolves a family name. The empty string and "none" return None.
func ParseFamily(s string) (Family, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return None, nil
	}
	for f, n := range familyNames {
		if n == name {
			return f, nil
		}
	}
	return None, errors.New(errors.ErrCodeInvalidFamily,
		"unknown family %q (must be one of: %s)", s, strings.Join(FamilyNames(), ", "))
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	if _, ok := familyNames[f]; !ok {
		return nil, errors.New(errors.ErrCodeInvalidFamily, "cannot marshal %s", f)
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	v, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// FamilyNames returns the names of all concrete families.
func FamilyNames() []string {
	names := make([]string, len(Families))
	for i, f := range Families {
		names[i] = f.String()
	}
	return names
}

// Density tunes feature count and contrast.
type Density int

// Density profiles.
const (
	Normal Density = iota
	Sparse
	Dense
)

var densityNames = map[Density]string{
	Sparse: "sparse",
	Normal: "normal",
	Dense:  "dense",
}

// String returns the profile name.
func (d Density) String() string {
	if name, ok := densityNames[d]; ok {
		return name
	}
	return fmt.Sprintf("density(%d)", int(d))
}

// ParseDensity resolves a density name. The empty string means Normal.
func ParseDensity(s string) (Density, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return Normal, nil
	case "sparse":
		return Sparse, nil
	case "dense":
		return Dense, nil
	}
	return Normal, errors.New(errors.ErrCodeInvalidDensity,
		"unknown density %q (must be one of: sparse, normal, dense)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Density) MarshalText() ([]byte, error) {
	if _, ok := densityNames[d]; !ok {
		return nil, errors.New(errors.ErrCodeInvalidDensity, "cannot marshal %s", d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Density) UnmarshalText(b []byte) error {
	v, err := ParseDensity(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// countScale multiplies feature counts.
func (d Density) countScale() float64 {
	switch d {
	case Sparse:
		return 0.7
	case Dense:
		return 1.4
	}
	return 1
}

// contrast stretches values around 0.5.
func (d Density) contrast() float64 {
	switch d {
	case Sparse:
		return 0.85
	case Dense:
		return 1.15
	}
	return 1
}

// Params is the per-field input shared by all generators.
type Params struct {
	Width   int
	Height  int
	Density Density
	Count   int  // feature count hint; octave count for FractalLite
	Macro   bool // low-frequency dominant tier
}

// Generate produces a field for the given family. Macro fields receive one
// box-blur pass. It panics on an unknown family.
func Generate(f Family, p Params, r *rng.RNG) *field.Field {
	var out *field.Field
	switch f {
	case DirectionalLineFields:
		out = lines(p, r)
	case BandGradients:
		out = bands(p, r)
	case VoronoiRegions:
		out = voronoi(p, r)
	case PolygonShards:
		out = shards(p, r)
	case WaveInterference:
		out = waves(p, r)
	case FractalLite:
		out = fractal(p, r)
	default:
		panic(fmt.Sprintf("generator: unknown family %s", f))
	}
	out.Clamp()
	if p.Macro {
		field.BoxBlur(out)
	}
	return out
}

// scaledCount applies the density scale to a count hint and clamps it.
func scaledCount(count int, d Density, lo, hi int) int {
	n := int(math.Round(float64(count) * d.countScale()))
	return min(max(n, lo), hi)
}

// applyContrast stretches v around 0.5 by the density contrast.
func applyContrast(v float64, d Density) float64 {
	return 0.5 + (v-0.5)*d.contrast()
}

// grid maps pixel coordinates to an isotropic domain where the shorter axis
// spans [0, 1].
type grid struct {
	scale   float64
	aspectX float64
	aspectY float64
}

func newGrid(w, h int) grid {
	s := float64(min(w, h))
	return grid{scale: 1 / s, aspectX: float64(w) / s, aspectY: float64(h) / s}
}

// at returns the domain position of the centre of pixel (x, y).
func (g grid) at(x, y int) (float64, float64) {
	return (float64(x) + 0.5) * g.scale, (float64(y) + 0.5) * g.scale
}
