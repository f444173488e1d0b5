package texture

import (
	"image"

	"github.com/matzehuels/backdrop/pkg/field"
)

// AlphaMaterializer stores each value as an 8-bit alpha mask. It is the
// lossless-enough default: decoding its PNG and dividing by 255 recovers
// every value to within half a step.
type AlphaMaterializer struct{}

// Materialize implements Materializer.
func (AlphaMaterializer) Materialize(f *field.Field, opts Options) *Sprite {
	img := image.NewAlpha(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+f.Width]
		for x := range row {
			row[x] = quantize(f.At(x, y))
		}
	}
	return &Sprite{Image: img, Wrap: opts.Wrap, PixelsPerUnit: opts.PixelsPerUnit}
}

var _ Materializer = AlphaMaterializer{}
