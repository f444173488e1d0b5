package texture

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/backdrop/pkg/field"
)

// TintMaterializer maps intensity onto a Low→High colour ramp blended in
// CIE Lab. The ramp is precomputed per byte level, so materializing is a
// table lookup per pixel.
type TintMaterializer struct {
	ramp [256]color.NRGBA
}

// NewTintMaterializer builds a materializer for the given ramp ends.
func NewTintMaterializer(low, high colorful.Color) *TintMaterializer {
	m := &TintMaterializer{}
	for i := range m.ramp {
		c := low.BlendLab(high, float64(i)/255).Clamped()
		r, g, b := c.RGB255()
		m.ramp[i] = color.NRGBA{R: r, G: g, B: b, A: 0xff}
	}
	return m
}

// Materialize implements Materializer.
func (m *TintMaterializer) Materialize(f *field.Field, opts Options) *Sprite {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := m.ramp[quantize(f.At(x, y))]
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
	return &Sprite{Image: img, Wrap: opts.Wrap, PixelsPerUnit: opts.PixelsPerUnit}
}

var _ Materializer = (*TintMaterializer)(nil)
