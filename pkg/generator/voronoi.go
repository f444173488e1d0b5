package generator

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

// site is a Voronoi seed point with its fill tone.
type site struct {
	x, y float64
	tone float64
}

// voronoi seeds 4-9 sites on a jittered grid. Macro fields fill each cell
// with a tone that falls off away from its site; detail fields keep only the
// cell edges.
//
// Draws: per site, x jitter, y jitter, tone.
func voronoi(p Params, r *rng.RNG) *field.Field {
	f := field.New(p.Width, p.Height)
	g := newGrid(p.Width, p.Height)

	n := scaledCount(p.Count, p.Density, 4, 9)
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols

	sites := make([]site, n)
	for i := range sites {
		cx, cy := float64(i%cols), float64(i/cols)
		sites[i] = site{
			x:    (cx + r.Range(0.15, 0.85)) / float64(cols) * g.aspectX,
			y:    (cy + r.Range(0.15, 0.85)) / float64(rows) * g.aspectY,
			tone: r.Range(0.55, 1),
		}
	}

	cell := 0.75 * math.Sqrt(g.aspectX*g.aspectY/float64(n))
	edgeWidth := map[Density]float64{Sparse: 0.35, Normal: 0.25, Dense: 0.18}[p.Density]

	f.Fill(func(x, y int) float64 {
		px, py := g.at(x, y)
		d1, d2 := math.Inf(1), math.Inf(1)
		nearest := 0
		for i, s := range sites {
			dx, dy := px-s.x, py-s.y
			d := dx*dx + dy*dy
			if d < d1 {
				d2, d1, nearest = d1, d, i
			} else if d < d2 {
				d2 = d
			}
		}

		if p.Macro {
			falloff := field.Smoothstep(0, cell, math.Sqrt(d1))
			return sites[nearest].tone * (1 - 0.65*falloff)
		}
		edge := field.Clamp01((d2 - d1) / (cell * cell * edgeWidth))
		return math.Pow(1-edge, 4)
	})
	return f
}
