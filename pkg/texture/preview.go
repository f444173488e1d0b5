package texture

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/backdrop/pkg/errors"
)

// Layers is the set of tier sprites flattened by Preview. Nil tiers are
// skipped.
type Layers struct {
	Macro  *Sprite
	Meso   *Sprite
	Accent *Sprite
	Micro  *Sprite
}

// Tier opacities used when flattening.
const (
	macroOpacity  = 1.0
	mesoOpacity   = 0.55
	accentOpacity = 0.4
	microOpacity  = 0.25

	// referencePPU is the density of the Clamp tiers, which span the whole
	// preview.
	referencePPU   = 256
	referenceTiles = 4
)

// PreviewOptions configure Preview.
type PreviewOptions struct {
	Size    int // square output side in pixels
	Palette Palette
}

// Preview flattens the tiers over the palette background into a square
// image. Clamp tiers are stretched to the full canvas; Repeat tiers are
// scaled by their pixel density and tiled.
func Preview(l Layers, opts PreviewOptions) (*image.NRGBA, error) {
	if opts.Size < 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "preview size must be at least 2, got %d", opts.Size)
	}
	size := opts.Size
	canvas := imaging.New(size, size, nrgba(opts.Palette.Background))

	tiers := []struct {
		sprite  *Sprite
		tint    colorful.Color
		opacity float64
	}{
		{l.Macro, opts.Palette.Macro, macroOpacity},
		{l.Meso, opts.Palette.Meso, mesoOpacity},
		{l.Accent, opts.Palette.Accent, accentOpacity},
		{l.Micro, opts.Palette.Micro, microOpacity},
	}
	for _, t := range tiers {
		if t.sprite == nil {
			continue
		}
		layer := tintLayer(t.sprite, t.tint)
		switch t.sprite.Wrap {
		case Repeat:
			layer = tile(layer, size, t.sprite.PixelsPerUnit)
		default:
			layer = imaging.Resize(layer, size, size, imaging.Lanczos)
		}
		canvas = imaging.Overlay(canvas, layer, image.Pt(0, 0), t.opacity)
	}
	return canvas, nil
}

// tintLayer paints a sprite's intensity into the alpha channel of a solid
// colour layer.
func tintLayer(s *Sprite, c colorful.Color) *image.NRGBA {
	src := FieldFromImage(s.Image)
	base := nrgba(c)
	out := image.NewNRGBA(image.Rect(0, 0, src.Width, src.Height))
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			i := out.PixOffset(x, y)
			out.Pix[i+0] = base.R
			out.Pix[i+1] = base.G
			out.Pix[i+2] = base.B
			out.Pix[i+3] = quantize(src.At(x, y))
		}
	}
	return out
}

// tile repeats a layer across a size x size canvas. At referencePPU the
// layer repeats referenceTiles times per axis; lower densities give
// proportionally larger tiles.
func tile(layer *image.NRGBA, size int, ppu float64) *image.NRGBA {
	if ppu <= 0 {
		ppu = referencePPU
	}
	b := layer.Bounds()
	tw := max(1, int(float64(size)*referencePPU/(ppu*referenceTiles)))
	th := max(1, tw*b.Dy()/b.Dx())
	scaled := imaging.Resize(layer, tw, th, imaging.Lanczos)

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y += th {
		for x := 0; x < size; x += tw {
			out = imaging.Paste(out, scaled, image.Pt(x, y))
		}
	}
	return out
}

func nrgba(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
