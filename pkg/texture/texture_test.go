package texture

import (
	"bytes"
	"encoding/json"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
)

func gradient(w, h int) *field.Field {
	f := field.New(w, h)
	f.Fill(func(x, y int) float64 { return float64(x+y) / float64(w+h-2) })
	return f
}

func TestAlphaMaterializer(t *testing.T) {
	f := gradient(16, 8)
	s := AlphaMaterializer{}.Materialize(f, Options{Wrap: Repeat, PixelsPerUnit: 128})

	require.IsType(t, &image.Alpha{}, s.Image)
	assert.Equal(t, image.Rect(0, 0, 16, 8), s.Bounds())
	assert.Equal(t, Repeat, s.Wrap)
	assert.Equal(t, 128.0, s.PixelsPerUnit)

	a := s.Image.(*image.Alpha)
	assert.Equal(t, uint8(0), a.AlphaAt(0, 0).A)
	assert.Equal(t, uint8(255), a.AlphaAt(15, 7).A)
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, uint8(0), quantize(-1))
	assert.Equal(t, uint8(0), quantize(0.001))
	assert.Equal(t, uint8(128), quantize(0.5))
	assert.Equal(t, uint8(255), quantize(1))
	assert.Equal(t, uint8(255), quantize(7))
}

func TestPNGRoundTrip(t *testing.T) {
	f := gradient(24, 24)
	f.Set(3, 3, 0) // keep the sprite translucent
	s := AlphaMaterializer{}.Materialize(f, Options{PixelsPerUnit: 256})

	data, err := PNGBytes(s.Image)
	require.NoError(t, err)

	again, err := PNGBytes(AlphaMaterializer{}.Materialize(f.Clone(), Options{PixelsPerUnit: 256}).Image)
	require.NoError(t, err)
	assert.Equal(t, data, again, "png encoding must be deterministic")

	img, err := DecodeImage(bytes.NewReader(data))
	require.NoError(t, err)
	back := FieldFromImage(img)
	require.Equal(t, f.Width, back.Width)
	for i, v := range f.Values {
		assert.InDelta(t, v, back.Values[i], 0.5/255+1e-9, "index %d", i)
	}
}

func TestPNGRoundTripOpaque(t *testing.T) {
	f := field.New(4, 4)
	f.Fill(func(int, int) float64 { return 1 })
	data, err := PNGBytes(AlphaMaterializer{}.Materialize(f, Options{}).Image)
	require.NoError(t, err)

	img, err := DecodeImage(bytes.NewReader(data))
	require.NoError(t, err)
	for _, v := range FieldFromImage(img).Values {
		assert.InDelta(t, 1.0, v, 1e-6)
	}
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, err := DecodeImage(bytes.NewReader([]byte("not an image")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidFormat))
}

func TestTintMaterializer(t *testing.T) {
	p, err := LookupPalette("mono")
	require.NoError(t, err)

	m := NewTintMaterializer(p.Background, p.Micro)
	s := m.Materialize(gradient(8, 8), Options{})
	img := s.Image.(*image.NRGBA)

	dark, light := img.NRGBAAt(0, 0), img.NRGBAAt(7, 7)
	assert.Equal(t, uint8(0xff), dark.A)
	assert.Less(t, dark.R, light.R)

	back := FieldFromImage(img)
	assert.Less(t, back.At(0, 0), back.At(7, 7))
}

func TestLookupPalette(t *testing.T) {
	p, err := LookupPalette("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPalette, p.Name)

	for _, name := range PaletteNames() {
		_, err := LookupPalette(name)
		assert.NoError(t, err, name)
	}

	_, err = LookupPalette("neon")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestWrapModeText(t *testing.T) {
	data, err := json.Marshal(map[string]WrapMode{"wrap": Repeat})
	require.NoError(t, err)
	assert.JSONEq(t, `{"wrap":"repeat"}`, string(data))

	var m WrapMode
	require.NoError(t, m.UnmarshalText([]byte("REPEAT")))
	assert.Equal(t, Repeat, m)
	assert.Error(t, m.UnmarshalText([]byte("mirror")))
}

func TestPreview(t *testing.T) {
	p, err := LookupPalette("ember")
	require.NoError(t, err)

	mat := AlphaMaterializer{}
	layers := Layers{
		Macro: mat.Materialize(gradient(16, 16), Options{Wrap: Clamp, PixelsPerUnit: 256}),
		Micro: mat.Materialize(gradient(8, 8), Options{Wrap: Repeat, PixelsPerUnit: 128}),
	}

	img, err := Preview(layers, PreviewOptions{Size: 64, Palette: p})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())
	assert.Equal(t, uint8(0xff), img.NRGBAAt(0, 0).A)
	assert.NotEqual(t, img.NRGBAAt(0, 0), img.NRGBAAt(63, 63))

	again, err := Preview(layers, PreviewOptions{Size: 64, Palette: p})
	require.NoError(t, err)
	assert.Equal(t, img.Pix, again.Pix)

	_, err = Preview(layers, PreviewOptions{Size: 1, Palette: p})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestMaterializerFunc(t *testing.T) {
	calls := 0
	m := MaterializerFunc(func(f *field.Field, opts Options) *Sprite {
		calls++
		return AlphaMaterializer{}.Materialize(f, opts)
	})
	m.Materialize(field.New(2, 2), Options{})
	assert.Equal(t, 1, calls)
}
