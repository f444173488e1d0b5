package bias

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
)

const (
	gammaLow   = 1.1
	gammaHigh  = 1.55
	gammaRange = 0.6 // ratio excess over Threshold that reaches gammaHigh

	targetFactor = 0.98 // radial pass aims for targetFactor * Threshold
	minScale     = 0.5
	maxScale     = 0.98
)

// Result summarizes a correction run.
type Result struct {
	Before     Report    `json:"before"`
	After      Report    `json:"after"`
	Ratios     []float64 `json:"ratios"` // initial ratio, then one entry per applied pass
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
	RolledBack bool      `json:"rolled_back"` // last attempted pass made things worse and was undone
}

// Correct reduces center bias in f in place.
//
// Each pass raises the field to a gamma derived from the current ratio and
// renormalizes it; if the ratio is still above Threshold it then darkens the
// field radially, strongest at the center. A gamma step that raises the ratio
// is undone before the radial step runs, and a pass that still ends with a
// higher ratio than it started with is undone entirely and correction stops,
// so the ratio sequence in the result never increases.
func Correct(f *field.Field) Result {
	current := Measure(f)
	res := Result{Before: current, Ratios: []float64{current.Ratio}}

	var snapshot *field.Field
	for i := 0; i < MaxIterations && current.Biased(); i++ {
		if snapshot == nil {
			snapshot = f.Clone()
		} else {
			snapshot.CopyFrom(f)
		}

		applyGamma(f, current.Ratio)
		next := Measure(f)
		if next.Ratio > current.Ratio {
			// Gamma sharpens an already peaked center; fall back to the
			// radial pass alone.
			f.CopyFrom(snapshot)
			next = current
		}
		if next.Biased() {
			applyRadial(f, targetFactor*Threshold)
			next = Measure(f)
		}

		if next.Ratio > current.Ratio {
			f.CopyFrom(snapshot)
			res.RolledBack = true
			break
		}
		current = next
		res.Iterations++
		res.Ratios = append(res.Ratios, current.Ratio)
	}

	res.After = current
	res.Converged = !current.Biased()
	return res
}

// Gamma returns the exponent applied for a given ratio.
func Gamma(ratio float64) float64 {
	return field.Lerp(gammaLow, gammaHigh, field.Clamp01((ratio-Threshold)/gammaRange))
}

func applyGamma(f *field.Field, ratio float64) {
	g := Gamma(ratio)
	f.Apply(func(v float64) float64 { return math.Pow(math.Max(v, 0), g) })
	f.Normalize()
}

// RadialWeights returns, per pixel, a smoothstepped distance from the
// center: 0 at the center, 1 at the corners.
func RadialWeights(w, h int) []float64 {
	cx, cy := float64(w-1)/2, float64(h-1)/2
	dmax := math.Hypot(cx, cy)
	weights := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / dmax
			weights[y*w+x] = field.Smoothstep(0, 1, d)
		}
	}
	return weights
}

// applyRadial multiplies each pixel by lerp(scale, 1, weight). Window means
// are linear in scale, so scale is solved directly for the target ratio and
// then clamped to [minScale, maxScale].
func applyRadial(f *field.Field, target float64) {
	weights := RadialWeights(f.Width, f.Height)

	fixed := field.New(f.Width, f.Height)  // part untouched by scale
	scaled := field.New(f.Width, f.Height) // part multiplied by scale
	for i, v := range f.Values {
		fixed.Values[i] = v * weights[i]
		scaled.Values[i] = v * (1 - weights[i])
	}
	a, b := Measure(fixed), Measure(scaled)
	ap, bp := (a.Corner+a.Edge)/2, (b.Corner+b.Edge)/2

	scale := minScale
	if den := target*bp - b.Center; math.Abs(den) > 1e-12 {
		if s := (a.Center - target*ap) / den; !math.IsNaN(s) && !math.IsInf(s, 0) {
			scale = s
		}
	}
	scale = math.Min(math.Max(scale, minScale), maxScale)

	for i := range f.Values {
		f.Values[i] *= field.Lerp(scale, 1, weights[i])
	}
}
