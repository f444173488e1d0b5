package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// Tier names one of the four layers.
type Tier int

const (
	Macro Tier = iota
	Meso
	Accent
	Micro
)

// Tiers lists the layers in generation order.
var Tiers = []Tier{Macro, Meso, Accent, Micro}

var tierNames = [...]string{"macro", "meso", "accent", "micro"}

func (t Tier) String() string {
	if t >= 0 && int(t) < len(tierNames) {
		return tierNames[t]
	}
	return fmt.Sprintf("tier(%d)", int(t))
}

// ParseTier resolves a tier name.
func ParseTier(s string) (Tier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tierNames {
		if n == name {
			return Tier(i), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput,
		"unknown tier %q (must be one of: %s)", s, strings.Join(tierNames[:], ", "))
}

// Sprites is the output of one generation. It is not modified after
// Generate returns.
type Sprites struct {
	Macro  *texture.Sprite
	Meso   *texture.Sprite
	Accent *texture.Sprite
	Micro  *texture.Sprite

	// Elapsed is wall time spent in Generate. It is informational only and
	// excluded from equality and caching.
	Elapsed time.Duration

	// Bias is the macro tier's final measurement; Correction records how it
	// got there.
	Bias       bias.Report
	Correction bias.Result
}

// Tier returns the sprite for t, or nil for an unknown tier.
func (s *Sprites) Tier(t Tier) *texture.Sprite {
	switch t {
	case Macro:
		return s.Macro
	case Meso:
		return s.Meso
	case Accent:
		return s.Accent
	case Micro:
		return s.Micro
	}
	return nil
}

// Layers adapts the sprites for texture.Preview.
func (s *Sprites) Layers() texture.Layers {
	return texture.Layers{Macro: s.Macro, Meso: s.Meso, Accent: s.Accent, Micro: s.Micro}
}
