package generator

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

// bandSet is one family of parallel bands.
type bandSet struct {
	dx, dy    float64 // unit direction
	spacing   float64 // domain units between band centres
	thickness float64 // share of the period covered by the band
	phase     float64
	weight    float64
}

// lines draws one to three sets of oriented bands over a sine-warped domain.
//
// Draws: set count, warp amplitude, warp frequency, warp phase; then per set
// angle, spacing jitter, thickness, phase, weight.
func lines(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)
	g := newGrid(p.Width, p.Height)

	sets := 1 + r.Intn(3)
	warpAmp := r.Range(0.01, 0.05)
	warpFreq := r.Range(1, 3)
	warpPhase := r.Angle()

	count := scaledCount(p.Count, p.Density, 2, 48)
	softness, spacingScale := 0.12, 1.0
	if p.Macro {
		softness, spacingScale = 0.35, 1.6
	}

	bs := make([]bandSet, sets)
	for i := range bs {
		a := r.Angle()
		spacing := r.Range(0.8, 1.25) * spacingScale / float64(count)
		var thickness float64
		if p.Macro {
			thickness = r.Range(0.35, 0.55)
		} else {
			thickness = r.Range(0.12, 0.3)
		}
		bs[i] = bandSet{
			dx:        math.Cos(a),
			dy:        math.Sin(a),
			spacing:   spacing,
			thickness: thickness,
			phase:     r.Float(),
			weight:    r.Range(0.6, 1),
		}
	}

	f.Fill(func(x, y int) float64 {
		u, v := g.at(x, y)
		u += warpAmp * math.Sin(v*warpFreq*2*math.Pi+warpPhase)

		acc := 0.0
		for _, b := range bs {
			t := field.Fract((u*b.dx+v*b.dy)/b.spacing + b.phase)
			tri := 1 - math.Abs(2*t-1) // 1 at the band centre
			edge := 1 - b.thickness
			soft := softness * b.thickness
			band := field.Smoothstep(edge-soft, edge+soft, tri)
			acc = math.Max(acc, band*b.weight)
		}
		return applyContrast(acc, p.Density)
	})
	return f
}
