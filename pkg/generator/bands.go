package generator

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

// bands blends a directional ramp with a periodic sine band. Macro fields
// use few bands and lean linear; detail fields lean on the sine.
//
// Draws: angle, mirror flag, tile count, band count, phase, sharpness mix.
func bands(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)

	angle := r.Angle()
	mirror := r.Bool(0.5)

	var tiles, count int
	if p.Macro {
		tiles = 1 + r.Intn(2)
		count = 2 + r.Intn(3)
	} else {
		tiles = 1 + r.Intn(3)
		count = scaledCount(p.Count, p.Density, 3, 24) + r.Intn(3)
	}
	phase := r.Angle()

	var mix float64
	if p.Macro {
		mix = r.Range(0.1, 0.35)
	} else {
		mix = r.Range(0.55, 0.85)
	}

	dx, dy := math.Cos(angle), math.Sin(angle)
	extent := math.Abs(dx) + math.Abs(dy)
	w, h := float64(p.Width), float64(p.Height)

	f.Fill(func(x, y int) float64 {
		cu := (float64(x)+0.5)/w - 0.5
		cv := (float64(y)+0.5)/h - 0.5

		// Projection of the centred unit square onto the direction spans
		// [-extent/2, extent/2].
		t := (cu*dx+cv*dy)/extent + 0.5
		t = field.Fract(t * float64(tiles))
		if mirror {
			t = 1 - math.Abs(2*t-1)
		}

		sine := 0.5 + 0.5*math.Sin(t*float64(count)*2*math.Pi+phase)
		return applyContrast(field.Lerp(t, sine, mix), p.Density)
	})
	return f
}
