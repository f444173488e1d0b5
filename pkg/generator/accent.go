package generator

import (
	perlin "github.com/aquilax/go-perlin"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

// Perlin parameters for the accent layer: alpha is the per-octave amplitude
// divisor, beta the frequency multiplier.
const (
	accentAlpha   = 2.0
	accentBeta    = 2.0
	accentOctaves = 3
)

// Accent produces the standalone accent layer used when a request has no
// secondary family: Perlin noise reshaped into soft isolated blotches.
//
// Draws: noise seed (two draws), x offset, y offset.
func Accent(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)
	g := newGrid(p.Width, p.Height)

	noise := perlin.NewPerlin(accentAlpha, accentBeta, accentOctaves, r.Seed64())
	ox, oy := r.Range(0, 512), r.Range(0, 512)
	freq := 1.5 + 0.5*float64(scaledCount(p.Count, p.Density, 1, 12))

	f.Fill(func(x, y int) float64 {
		u, v := g.at(x, y)
		return noise.Noise2D(u*freq+ox, v*freq+oy)
	})

	f.Normalize()
	lo := 0.55 - 0.1*(p.Density.countScale()-1)
	f.Apply(func(v float64) float64 { return field.Smoothstep(lo, 0.95, v) })
	return f
}
