// Package compose builds the four layered tiers of a background pattern.
//
// A [Composer] turns one [Request] into [Sprites]:
//
//	macro   primary family, low frequency, blurred, bias corrected
//	meso    primary family, detail
//	accent  secondary family, or generic accent noise when there is none
//	micro   seamless tiling noise
//
// All four tiers draw from a single random stream seeded from the zone seed,
// in that order, so the whole result is a pure function of the request.
// Residual center bias on the macro tier is logged as an error; composers
// built with [WithBiasAssertions] panic instead, which is meant for
// development builds and tests.
package compose

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/field"
	"github.com/matzehuels/backdrop/pkg/generator"
	"github.com/matzehuels/backdrop/pkg/rng"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// seedSalt decorrelates pattern streams from other users of the zone seed.
const seedSalt = 0xA13F2B19

// Sampling applied to each tier.
var (
	StretchedOptions = texture.Options{Wrap: texture.Clamp, PixelsPerUnit: 256}
	TiledOptions     = texture.Options{Wrap: texture.Repeat, PixelsPerUnit: 128}
)

// Composer generates pattern sprites. It holds no per-call state and may be
// shared between goroutines as long as its Materializer can be.
type Composer struct {
	materializer texture.Materializer
	logger       *log.Logger
	assertBias   bool
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBiasAssertions makes Generate panic when the macro tier is still
// biased after correction.
func WithBiasAssertions(on bool) Option {
	return func(c *Composer) { c.assertBias = on }
}

// New creates a Composer. A nil materializer selects texture.AlphaMaterializer.
func New(m texture.Materializer, opts ...Option) *Composer {
	if m == nil {
		m = texture.AlphaMaterializer{}
	}
	c := &Composer{
		materializer: m,
		logger:       log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate composes the four tiers for req. It panics if req.Primary is not
// a pattern family.
func (c *Composer) Generate(req Request) *Sprites {
	start := time.Now()
	fields := Build(req)

	correction := bias.Correct(fields.Macro)
	report, biased := bias.Detect(fields.Macro)
	c.reportBias(req, correction, report, biased)

	s := &Sprites{
		Macro:      c.materializer.Materialize(fields.Macro, StretchedOptions),
		Meso:       c.materializer.Materialize(fields.Meso, StretchedOptions),
		Accent:     c.materializer.Materialize(fields.Accent, StretchedOptions),
		Micro:      c.materializer.Materialize(fields.Micro, TiledOptions),
		Bias:       report,
		Correction: correction,
	}
	s.Elapsed = time.Since(start)

	c.logger.Debug("composed pattern", "request", req, "elapsed", s.Elapsed)
	return s
}

func (c *Composer) reportBias(req Request, correction bias.Result, report bias.Report, biased bool) {
	if correction.Iterations > 0 || correction.RolledBack {
		c.logger.Debug("corrected center bias",
			"family", req.Primary,
			"before", fmt.Sprintf("%.3f", correction.Before.Ratio),
			"after", fmt.Sprintf("%.3f", report.Ratio),
			"iterations", correction.Iterations)
	}
	if !biased {
		return
	}
	c.logger.Error("center bias persists after correction",
		"family", req.Primary,
		"seed", req.ZoneSeed,
		"ratio", fmt.Sprintf("%.3f", report.Ratio),
		"threshold", bias.Threshold)
	if c.assertBias {
		panic(fmt.Sprintf("compose: %s seed %d: macro ratio %.3f exceeds %.2f",
			req.Primary, req.ZoneSeed, report.Ratio, bias.Threshold))
	}
}

// Fields holds the raw tiers before materialization.
type Fields struct {
	Macro  *field.Field
	Meso   *field.Field
	Accent *field.Field
	Micro  *field.Field
}

// Build generates the raw tiers for req without bias correction or
// materialization. Generate runs Build first; it is exported for tools that
// inspect uncorrected fields.
func Build(req Request) Fields {
	r := rng.New(req.ZoneSeed ^ seedSalt)
	res := generator.ResolutionFor(req.Primary)

	params := func(s generator.Size, count int, macro bool) generator.Params {
		return generator.Params{
			Width:   s.Width,
			Height:  s.Height,
			Density: req.Density,
			Count:   count,
			Macro:   macro,
		}
	}

	var out Fields
	out.Macro = generator.Generate(req.Primary, params(res.Macro, req.MacroCount, true), r)
	out.Meso = generator.Generate(req.Primary, params(res.Meso, req.MesoCount, false), r)
	if req.Secondary.Valid() {
		out.Accent = generator.Generate(req.Secondary, params(res.Accent, max(1, req.MesoCount/2), false), r)
	} else {
		out.Accent = generator.Accent(params(res.Accent, req.MesoCount, false), r)
	}
	out.Micro = generator.Micro(params(res.Micro, req.MicroCount, false), r)
	return out
}
