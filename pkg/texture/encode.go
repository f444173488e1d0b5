package texture

import (
	"bytes"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
)

// EncodePNG writes img as PNG. Encoding is deterministic: equal images give
// equal bytes.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return nil
}

// PNGBytes encodes img into a fresh buffer.
func PNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeImage reads any image format imaging understands.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode image")
	}
	return img, nil
}

// FieldFromImage recovers intensities from a materialized image. Alpha and
// gray images are read exactly (to 1/255). Decoded alpha sprites come back as
// translucent NRGBA and are read from their alpha channel; opaque colour
// images fall back to Lab lightness, which only approximates the field.
func FieldFromImage(img image.Image) *field.Field {
	b := img.Bounds()
	f := field.New(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Alpha:
		f.Fill(func(x, y int) float64 {
			return float64(src.AlphaAt(b.Min.X+x, b.Min.Y+y).A) / 255
		})
	case *image.Gray:
		f.Fill(func(x, y int) float64 {
			return float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y) / 255
		})
	default:
		if o, ok := img.(interface{ Opaque() bool }); ok && !o.Opaque() {
			f.Fill(func(x, y int) float64 {
				_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				return float64(a) / 0xffff
			})
			return f
		}
		f.Fill(func(x, y int) float64 {
			cf, _ := colorful.MakeColor(img.At(b.Min.X+x, b.Min.Y+y))
			l, _, _ := cf.Lab()
			return l
		})
		f.Clamp()
	}
	return f
}
