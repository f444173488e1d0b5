// Package field defines the scalar field shared by every stage of pattern
// synthesis, together with the post-processing applied to it.
//
// A [Field] is a dense row-major grid of intensities. Generators write raw
// values; [Field.Clamp] and [Field.Normalize] bring them into [0, 1];
// [BoxBlur] smooths low-frequency fields; [Summarize] and [Compare] provide
// diagnostics for regression checks.
//
// Fields are never shared: each generation call allocates its own and hands
// it to the materializer when finished.
package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MinSize is the smallest permitted extent on each axis. Blur and bias
// sampling read neighbouring pixels and need a border.
const MinSize = 2

// Field is a row-major grid of float intensities.
type Field struct {
	Width  int
	Height int
	Values []float64
}

// New allocates a zeroed field. It panics if either dimension is below
// MinSize; callers are expected to pass validated sizes.
func New(width, height int) *Field {
	if width < MinSize || height < MinSize {
		panic(fmt.Sprintf("field: invalid size %dx%d (minimum %dx%d)", width, height, MinSize, MinSize))
	}
	return &Field{
		Width:  width,
		Height: height,
		Values: make([]float64, width*height),
	}
}

// FromValues wraps an existing slice. It panics when the slice length does
// not match the dimensions.
func FromValues(width, height int, values []float64) *Field {
	f := New(width, height)
	if len(values) != len(f.Values) {
		panic(fmt.Sprintf("field: %d values for %dx%d field", len(values), width, height))
	}
	copy(f.Values, values)
	return f
}

// Index returns the slice offset of (x, y).
func (f *Field) Index(x, y int) int { return y*f.Width + x }

// At returns the value at (x, y).
func (f *Field) At(x, y int) float64 { return f.Values[y*f.Width+x] }

// Set stores v at (x, y).
func (f *Field) Set(x, y int, v float64) { f.Values[y*f.Width+x] = v }

// Len returns the number of pixels.
func (f *Field) Len() int { return len(f.Values) }

// Clone returns a deep copy.
func (f *Field) Clone() *Field {
	c := &Field{Width: f.Width, Height: f.Height, Values: make([]float64, len(f.Values))}
	copy(c.Values, f.Values)
	return c
}

// CopyFrom overwrites f with the contents of src. Both fields must have the
// same dimensions.
func (f *Field) CopyFrom(src *Field) {
	if f.Width != src.Width || f.Height != src.Height {
		panic(fmt.Sprintf("field: copy %dx%d into %dx%d", src.Width, src.Height, f.Width, f.Height))
	}
	copy(f.Values, src.Values)
}

// Equal reports whether both fields have identical dimensions and values.
func (f *Field) Equal(o *Field) bool {
	if f.Width != o.Width || f.Height != o.Height {
		return false
	}
	for i, v := range f.Values {
		if o.Values[i] != v {
			return false
		}
	}
	return true
}

// Fill evaluates fn for every pixel in row-major order.
func (f *Field) Fill(fn func(x, y int) float64) {
	i := 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			f.Values[i] = fn(x, y)
			i++
		}
	}
}

// Apply replaces every value v with fn(v).
func (f *Field) Apply(fn func(v float64) float64) {
	for i, v := range f.Values {
		f.Values[i] = fn(v)
	}
}

// Clamp forces every value into [0, 1]. NaN becomes 0.
func (f *Field) Clamp() {
	for i, v := range f.Values {
		f.Values[i] = Clamp01(v)
	}
}

// MinMax returns the smallest and largest values.
func (f *Field) MinMax() (lo, hi float64) {
	return floats.Min(f.Values), floats.Max(f.Values)
}

// Normalize rescales values linearly so the minimum maps to 0 and the
// maximum to 1. A flat field is left at its clamped value.
func (f *Field) Normalize() {
	lo, hi := f.MinMax()
	span := hi - lo
	if span < 1e-9 || math.IsNaN(span) {
		f.Clamp()
		return
	}
	floats.AddConst(-lo, f.Values)
	floats.Scale(1/span, f.Values)
	f.Clamp()
}

// Mean returns the average value of the window [x0, x0+w) x [y0, y0+h),
// clipped to the field bounds.
func (f *Field) Mean(x0, y0, w, h int) float64 {
	x1, y1 := min(x0+w, f.Width), min(y0+h, f.Height)
	x0, y0 = max(x0, 0), max(y0, 0)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	sum := 0.0
	for y := y0; y < y1; y++ {
		sum += floats.Sum(f.Values[y*f.Width+x0 : y*f.Width+x1])
	}
	return sum / float64((x1-x0)*(y1-y0))
}

// Region copies the values of a window into a new slice, clipped to bounds.
func (f *Field) Region(x0, y0, w, h int) []float64 {
	x1, y1 := min(x0+w, f.Width), min(y0+h, f.Height)
	x0, y0 = max(x0, 0), max(y0, 0)
	if x1 <= x0 || y1 <= y0 {
		return nil
	}
	out := make([]float64, 0, (x1-x0)*(y1-y0))
	for y := y0; y < y1; y++ {
		out = append(out, f.Values[y*f.Width+x0:y*f.Width+x1]...)
	}
	return out
}
