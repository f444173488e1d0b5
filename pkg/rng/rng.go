// Package rng provides the deterministic random source shared by all pattern
// generators.
//
// The generator is a 32-bit linear congruential generator. Its constants and
// output width are fixed: changing them changes every pattern produced for a
// given seed, so reference snapshots recorded with one build stay valid for
// the next.
//
// An RNG is a plain value owned by one generation call. It is not safe for
// concurrent use; callers that generate in parallel create one RNG per call
// from disjoint seeds.
//
//	r := rng.New(seed)
//	x := r.Float()       // [0, 1)
//	a := r.Angle()       // [0, 2π)
//	n := r.Intn(4)       // 0..3
package rng

import "math"

const (
	multiplier = 1664525
	increment  = 1013904223

	// FallbackState replaces a folded seed of zero.
	FallbackState uint32 = 0x9E3779B9

	// outputScale maps the top 24 bits of the state onto [0, 1).
	outputScale = 1.0 / (1 << 24)
)

// RNG is a seeded LCG stream of unit floats.
type RNG struct {
	state uint32
}

// New folds a 64-bit seed into the 32-bit LCG state.
func New(seed uint64) *RNG {
	s := uint32(seed ^ (seed >> 32))
	if s == 0 {
		s = FallbackState
	}
	return &RNG{state: s}
}

// State returns the current internal state.
func (r *RNG) State() uint32 { return r.state }

// Float advances the stream and returns a value in [0, 1).
func (r *RNG) Float() float64 {
	r.state = multiplier*r.state + increment
	return float64(r.state>>8) * outputScale
}

// Range returns a value in [lo, hi). Consumes one draw.
func (r *RNG) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float()
}

// Intn returns an int in [0, n). Consumes one draw. n must be positive.
func (r *RNG) Intn(n int) int {
	i := int(r.Float() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Angle returns an angle in radians in [0, 2π). Consumes one draw.
func (r *RNG) Angle() float64 {
	return r.Float() * 2 * math.Pi
}

// Bool returns true with probability p. Consumes one draw.
func (r *RNG) Bool(p float64) bool {
	return r.Float() < p
}

// Seed64 packs two draws into a signed 64-bit seed for third-party noise
// sources that take their own seed.
func (r *RNG) Seed64() int64 {
	hi := uint64(r.Float() * (1 << 24))
	lo := uint64(r.Float() * (1 << 24))
	return int64(hi<<24 | lo)
}
