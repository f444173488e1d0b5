package io

import (
	"fmt"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// Version is the snapshot format version written by this package.
const Version = 1

// Snapshot is the serialized form of one generation.
type Snapshot struct {
	Version    int             `json:"version"`
	Request    compose.Request `json:"request"`
	Bias       bias.Report     `json:"bias"`
	Correction bias.Result     `json:"correction"`
	Tiers      []Tier          `json:"tiers"`
}

// Tier is one quantized layer.
type Tier struct {
	Name          string           `json:"name"`
	Width         int              `json:"width"`
	Height        int              `json:"height"`
	Wrap          texture.WrapMode `json:"wrap"`
	PixelsPerUnit float64          `json:"pixels_per_unit"`
	Data          []byte           `json:"data"`
}

// FromSprites captures req and its sprites.
func FromSprites(req compose.Request, s *compose.Sprites) *Snapshot {
	snap := &Snapshot{
		Version:    Version,
		Request:    req,
		Bias:       s.Bias,
		Correction: s.Correction,
	}
	for _, t := range compose.Tiers {
		sp := s.Tier(t)
		if sp == nil {
			continue
		}
		snap.Tiers = append(snap.Tiers, tierFromField(t.String(), texture.FieldFromImage(sp.Image), sp))
	}
	return snap
}

func tierFromField(name string, f *field.Field, sp *texture.Sprite) Tier {
	data := make([]byte, f.Len())
	for i, v := range f.Values {
		data[i] = uint8(field.Clamp01(v)*255 + 0.5)
	}
	return Tier{
		Name:          name,
		Width:         f.Width,
		Height:        f.Height,
		Wrap:          sp.Wrap,
		PixelsPerUnit: sp.PixelsPerUnit,
		Data:          data,
	}
}

// Tier returns the named tier, or false if the snapshot does not hold it.
func (s *Snapshot) Tier(name string) (Tier, bool) {
	for _, t := range s.Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// Field expands the tier back to a unit-interval field.
func (t Tier) Field() *field.Field {
	f := field.New(t.Width, t.Height)
	for i, b := range t.Data {
		f.Values[i] = float64(b) / 255
	}
	return f
}

func (t Tier) validate() error {
	if t.Width < field.MinSize || t.Height < field.MinSize {
		return fmt.Errorf("tier %s: size %dx%d below minimum %d", t.Name, t.Width, t.Height, field.MinSize)
	}
	if len(t.Data) != t.Width*t.Height {
		return fmt.Errorf("tier %s: %d bytes for %dx%d", t.Name, len(t.Data), t.Width, t.Height)
	}
	return nil
}
