// Package texture turns scalar fields into displayable images.
//
// The composer hands each finished tier to a [Materializer] together with
// [Options] describing how the sprite is sampled: [Clamp] for tiers stretched
// over the background and [Repeat] for the tiling micro layer. The package
// ships two materializers:
//
//   - [AlphaMaterializer] stores intensity as an 8-bit alpha mask, which is
//     what the pipeline encodes and caches.
//   - [TintMaterializer] maps intensity onto a two-colour ramp blended in Lab
//     space, for callers that want colour directly.
//
// [EncodePNG], [Preview] and [FieldFromImage] cover the rest of the round
// trip: writing sprites, flattening the four tiers into one picture, and
// reading intensities back for comparison.
package texture

import (
	"fmt"
	"image"
	"strings"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
)

// WrapMode controls how a sprite is sampled outside [0, 1].
type WrapMode int

const (
	Clamp WrapMode = iota
	Repeat
)

// String returns "clamp" or "repeat".
func (m WrapMode) String() string {
	switch m {
	case Clamp:
		return "clamp"
	case Repeat:
		return "repeat"
	}
	return fmt.Sprintf("wrap(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m WrapMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *WrapMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "clamp", "":
		*m = Clamp
	case "repeat":
		*m = Repeat
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown wrap mode %q", string(b))
	}
	return nil
}

// Options describe how a materialized sprite is sampled.
type Options struct {
	Wrap          WrapMode
	PixelsPerUnit float64
}

// Sprite is a materialized tier.
type Sprite struct {
	Image         image.Image
	Wrap          WrapMode
	PixelsPerUnit float64
}

// Bounds returns the sprite's pixel rectangle.
func (s *Sprite) Bounds() image.Rectangle { return s.Image.Bounds() }

// Materializer converts a finished field into a sprite. Implementations must
// not retain f.
type Materializer interface {
	Materialize(f *field.Field, opts Options) *Sprite
}

// MaterializerFunc adapts a function to the Materializer interface.
type MaterializerFunc func(f *field.Field, opts Options) *Sprite

// Materialize calls fn(f, opts).
func (fn MaterializerFunc) Materialize(f *field.Field, opts Options) *Sprite {
	return fn(f, opts)
}

// quantize maps a unit value to a byte, rounding to nearest.
func quantize(v float64) uint8 {
	return uint8(field.Clamp01(v)*255 + 0.5)
}
