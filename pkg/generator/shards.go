package generator

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/rng"
)

type point struct{ x, y float64 }

// triangle is one shard with its flat tone and, for macro fields, the
// barycentric axis its gradient leans toward.
type triangle struct {
	a, b, c point
	tone    float64
	axis    int
}

// shards jitters the interior vertices of a quad grid, splits every cell
// into two triangles and shades each by barycentric distance to its edges.
//
// Draws: per interior vertex (row-major) x then y jitter; per cell the
// diagonal choice, then tone and gradient axis for each of its triangles.
func shards(p Params, r *rng.RNG) *field.Field {
	w, h := float64(p.Width), float64(p.Height)

	cols := scaledCount(p.Count, p.Density, 2, 16)
	rows := max(1, int(math.Round(float64(cols)*h/w)))
	cw, ch := w/float64(cols), h/float64(rows)

	verts := make([]point, (cols+1)*(rows+1))
	vi := func(i, j int) int { return j*(cols+1) + i }
	for j := 0; j <= rows; j++ {
		for i := 0; i <= cols; i++ {
			pt := point{float64(i) * cw, float64(j) * ch}
			if i > 0 && i < cols && j > 0 && j < rows {
				pt.x += r.Range(-0.22, 0.22) * cw
				pt.y += r.Range(-0.22, 0.22) * ch
			}
			verts[vi(i, j)] = pt
		}
	}

	tris := make([]triangle, 0, 2*cols*rows)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			a, b := verts[vi(i, j)], verts[vi(i+1, j)]
			c, d := verts[vi(i+1, j+1)], verts[vi(i, j+1)]
			var pair [2][3]point
			if r.Bool(0.5) {
				pair = [2][3]point{{a, b, c}, {a, c, d}}
			} else {
				pair = [2][3]point{{a, b, d}, {b, c, d}}
			}
			for _, t := range pair {
				tris = append(tris, triangle{a: t[0], b: t[1], c: t[2], tone: r.Range(0.15, 1), axis: r.Intn(3)})
			}
		}
	}

	soft, floor := 0.2, 0.25
	if p.Macro {
		soft, floor = 0.6, 0.55
	}

	f := field.New(p.Width, p.Height)
	covered := make([]bool, f.Len())
	for _, t := range tris {
		rasterize(f, covered, t, func(l [3]float64) float64 {
			edge := 3 * math.Min(l[0], math.Min(l[1], l[2])) // 0 on an edge, 1 at the centroid
			v := t.tone * field.Lerp(floor, 1, field.Smoothstep(0, soft, edge))
			if p.Macro {
				v *= field.Lerp(0.7, 1, l[t.axis])
			}
			return applyContrast(v, p.Density)
		})
	}
	fillGaps(f, covered)
	return f
}

// rasterize evaluates shade for every pixel centre inside t.
func rasterize(f *field.Field, covered []bool, t triangle, shade func(l [3]float64) float64) {
	x0 := max(0, int(math.Floor(math.Min(t.a.x, math.Min(t.b.x, t.c.x)))))
	x1 := min(f.Width-1, int(math.Ceil(math.Max(t.a.x, math.Max(t.b.x, t.c.x)))))
	y0 := max(0, int(math.Floor(math.Min(t.a.y, math.Min(t.b.y, t.c.y)))))
	y1 := min(f.Height-1, int(math.Ceil(math.Max(t.a.y, math.Max(t.b.y, t.c.y)))))

	det := (t.b.y-t.c.y)*(t.a.x-t.c.x) + (t.c.x-t.b.x)*(t.a.y-t.c.y)
	if math.Abs(det) < 1e-12 {
		return
	}
	const eps = -1e-9
	for y := y0; y <= y1; y++ {
		py := float64(y) + 0.5
		for x := x0; x <= x1; x++ {
			px := float64(x) + 0.5
			l0 := ((t.b.y-t.c.y)*(px-t.c.x) + (t.c.x-t.b.x)*(py-t.c.y)) / det
			l1 := ((t.c.y-t.a.y)*(px-t.c.x) + (t.a.x-t.c.x)*(py-t.c.y)) / det
			l2 := 1 - l0 - l1
			if l0 < eps || l1 < eps || l2 < eps {
				continue
			}
			i := f.Index(x, y)
			f.Values[i] = shade([3]float64{l0, l1, l2})
			covered[i] = true
		}
	}
}

// fillGaps copies a neighbour into pixels no triangle claimed. Gaps only
// appear where jitter folds a quad and are at most a few pixels wide.
func fillGaps(f *field.Field, covered []bool) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			i := f.Index(x, y)
			if covered[i] {
				continue
			}
			switch {
			case x > 0:
				f.Values[i] = f.Values[i-1]
			case y > 0:
				f.Values[i] = f.Values[i-f.Width]
			default:
				f.Values[i] = 0.5
			}
			covered[i] = true
		}
	}
}
