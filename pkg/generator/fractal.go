package generator

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

const (
	fractalLacunarity = 2.1
	fractalGain       = 0.55
	fractalMaxOctaves = 8
	detailExponent    = 1.6
)

// fractal layers octaves of simplex noise. The count hint is the octave
// count.
//
// Draws: noise seed (two draws), x offset, y offset.
func fractal(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)
	g := newGrid(p.Width, p.Height)

	octaves := min(max(p.Count, 1), fractalMaxOctaves)
	noise := opensimplex.NewNormalized(r.Seed64())
	ox, oy := r.Range(0, 256), r.Range(0, 256)

	base := 4.0 * p.Density.countScale()
	if p.Macro {
		base = 1.6
	}

	f.Fill(func(x, y int) float64 {
		return octaveNoise(noise, x, y, g, ox, oy, base, octaves)
	})

	f.Normalize()
	f.Apply(func(v float64) float64 { return field.Smoothstep(0, 1, v) })
	if !p.Macro {
		f.Apply(func(v float64) float64 { return math.Pow(v, detailExponent) })
	}
	return f
}

// octaveNoise sums octaves of normalized noise and divides by the total
// amplitude, staying within [0, 1].
func octaveNoise(noise opensimplex.Noise, x, y int, g grid, ox, oy, freq float64, octaves int) float64 {
	u, v := g.at(x, y)
	total, norm, amp := 0.0, 0.0, 1.0
	for i := 0; i < octaves; i++ {
		total += amp * noise.Eval2(u*freq+ox, v*freq+oy)
		norm += amp
		amp *= fractalGain
		freq *= fractalLacunarity
	}
	return total / norm
}
