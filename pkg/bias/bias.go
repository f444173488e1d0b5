// Package bias detects and corrects center bias in scalar fields.
//
// Center bias is a vignette-like artifact where intensity is statistically
// higher near the middle of a field than near its edges and corners. It is
// measured by comparing the mean of a center window with the means of the
// four corner and four edge-midpoint windows:
//
//	ratio = center / ((corners + edges) / 2)
//
// A ratio above [Threshold] is biased. [Correct] reshapes the field in up to
// [MaxIterations] passes and is best-effort: it never leaves a field worse
// than it found it, but it does not guarantee convergence.
package bias

import (
	"math"

	"github.com/matzehuels/backdrop/pkg/field"
)

const (
	// Threshold is the highest acceptable center/periphery ratio.
	Threshold = 1.15

	// MaxIterations caps the number of correction passes.
	MaxIterations = 4

	// WindowFraction sizes each sample window relative to the shorter axis.
	WindowFraction = 0.18

	// minDenominator keeps the ratio finite on dark peripheries.
	minDenominator = 1e-4
)

// Report holds the window means and the resulting ratio for one field.
type Report struct {
	Center float64 `json:"center"`
	Corner float64 `json:"corner"`
	Edge   float64 `json:"edge"`
	Ratio  float64 `json:"ratio"`
	Window int     `json:"window"` // side length of each sample window in pixels
}

// Biased reports whether the ratio exceeds Threshold.
func (r Report) Biased() bool { return r.Ratio > Threshold }

// WindowSize returns the sample window side for a w x h field.
func WindowSize(w, h int) int {
	return max(1, int(math.Round(WindowFraction*float64(min(w, h)))))
}

// Measure samples the center, corner and edge-midpoint windows of f.
func Measure(f *field.Field) Report {
	w, h := f.Width, f.Height
	s := WindowSize(w, h)
	midX, midY := (w-s)/2, (h-s)/2

	center := f.Mean(midX, midY, s, s)
	corner := (f.Mean(0, 0, s, s) +
		f.Mean(w-s, 0, s, s) +
		f.Mean(0, h-s, s, s) +
		f.Mean(w-s, h-s, s, s)) / 4
	edge := (f.Mean(midX, 0, s, s) +
		f.Mean(midX, h-s, s, s) +
		f.Mean(0, midY, s, s) +
		f.Mean(w-s, midY, s, s)) / 4

	return Report{
		Center: center,
		Corner: corner,
		Edge:   edge,
		Ratio:  ratio(center, corner, edge),
		Window: s,
	}
}

func ratio(center, corner, edge float64) float64 {
	return center / math.Max((corner+edge)/2, minDenominator)
}

// Detect measures f and reports whether it is biased.
func Detect(f *field.Field) (Report, bool) {
	r := Measure(f)
	return r, r.Biased()
}
