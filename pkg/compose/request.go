package compose

import (
	"fmt"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
)

// Count bounds accepted by Validate. The generators clamp their own feature
// counts further; these limits only reject nonsense from configuration.
const (
	MinCount = 1
	MaxCount = 64
)

// Request fully describes one generation. It is a plain value; two equal
// requests produce byte-identical sprites.
type Request struct {
	Primary    generator.Family  `json:"primary"`
	Secondary  generator.Family  `json:"secondary"` // None selects the generic accent noise
	Density    generator.Density `json:"density"`
	MacroCount int               `json:"macro_count"`
	MesoCount  int               `json:"meso_count"`
	MicroCount int               `json:"micro_count"`
	ZoneSeed   uint64            `json:"zone_seed"`
}

// DefaultRequest returns a request with the counts used when a level leaves
// them unset.
func DefaultRequest(primary generator.Family, seed uint64) Request {
	return Request{
		Primary:    primary,
		Density:    generator.Normal,
		MacroCount: 4,
		MesoCount:  8,
		MicroCount: 3,
		ZoneSeed:   seed,
	}
}

// Validate reports configuration mistakes as errors. Generate itself does
// not validate and panics on an invalid primary family.
func (r Request) Validate() error {
	if !r.Primary.Valid() {
		return errors.New(errors.ErrCodeInvalidFamily, "primary family %s is not a pattern family", r.Primary)
	}
	if r.Secondary != generator.None && !r.Secondary.Valid() {
		return errors.New(errors.ErrCodeInvalidFamily, "secondary family %s is not a pattern family", r.Secondary)
	}
	switch r.Density {
	case generator.Sparse, generator.Normal, generator.Dense:
	default:
		return errors.New(errors.ErrCodeInvalidDensity, "unknown density %s", r.Density)
	}
	for _, c := range []struct {
		name string
		n    int
	}{
		{"macro count", r.MacroCount},
		{"meso count", r.MesoCount},
		{"micro count", r.MicroCount},
	} {
		if err := errors.ValidateCount(c.name, c.n, MinCount, MaxCount); err != nil {
			return err
		}
	}
	return nil
}

// String renders the request compactly for logs.
func (r Request) String() string {
	s := fmt.Sprintf("%s/%s seed=%d counts=%d,%d,%d", r.Primary, r.Density, r.ZoneSeed,
		r.MacroCount, r.MesoCount, r.MicroCount)
	if r.Secondary != generator.None {
		s += " accent=" + r.Secondary.String()
	}
	return s
}
