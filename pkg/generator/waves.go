package generator

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

type wave struct {
	dx, dy float64
	freq   float64
	phase  float64
	amp    float64
}

// waves sums three to five oriented sine waves and normalizes the result.
// Detail fields get an extra smoothstep for contrast.
//
// Draws: wave count; then per wave angle, frequency, phase, amplitude.
func waves(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)
	g := newGrid(p.Width, p.Height)

	n := 3 + r.Intn(3)
	freqScale := 1.0
	if !p.Macro {
		freqScale = math.Min(math.Max(float64(p.Count)/4, 0.75), 2.5) * p.Density.countScale()
	}

	ws := make([]wave, n)
	for i := range ws {
		a := r.Angle()
		var freq float64
		if p.Macro {
			freq = r.Range(0.8, 2.2)
		} else {
			freq = r.Range(3, 8) * freqScale
		}
		ws[i] = wave{
			dx:    math.Cos(a),
			dy:    math.Sin(a),
			freq:  freq,
			phase: r.Angle(),
			amp:   r.Range(0.4, 1),
		}
	}

	f.Fill(func(x, y int) float64 {
		u, v := g.at(x, y)
		sum := 0.0
		for _, w := range ws {
			sum += w.amp * math.Sin(2*math.Pi*w.freq*(u*w.dx+v*w.dy)+w.phase)
		}
		return sum
	})

	f.Normalize()
	if !p.Macro {
		f.Apply(func(v float64) float64 { return field.Smoothstep(0, 1, v) })
	}
	f.Apply(func(v float64) float64 { return applyContrast(v, p.Density) })
	return f
}
