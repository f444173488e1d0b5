package generator

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

// microDetailRatio is the frequency ratio between the two micro octaves.
const microDetailRatio = 2.3

// Micro produces the fine grain layer: two octaves of simplex noise blended
// together. The noise is sampled on a 4D torus so the tile repeats without a
// seam, matching the repeat wrap mode the micro tier is rendered with.
//
// Draws: noise seed (two draws), blend weight.
func Micro(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)

	noise := opensimplex.NewNormalized(r.Seed64())
	blend := r.Range(0.25, 0.45)

	cycles := float64(scaledCount(p.Count, p.Density, 2, 32))
	r1 := cycles / (2 * math.Pi)
	r2 := r1 * microDetailRatio
	w, h := float64(p.Width), float64(p.Height)

	f.Fill(func(x, y int) float64 {
		a := 2 * math.Pi * float64(x) / w
		b := 2 * math.Pi * float64(y) / h
		ca, sa, cb, sb := math.Cos(a), math.Sin(a), math.Cos(b), math.Sin(b)
		coarse := noise.Eval4(r1*ca, r1*sa, r1*cb, r1*sb)
		fine := noise.Eval4(r2*ca+31.7, r2*sa+31.7, r2*cb+31.7, r2*sb+31.7)
		return field.Lerp(coarse, fine, blend)
	})

	f.Normalize()
	f.Apply(func(v float64) float64 { return applyContrast(v, p.Density) })
	f.Clamp()
	return f
}
