// Package pipeline provides the generate → encode → cache pipeline for
// backdrop.
//
// The CLI generate command, the preview server and the terminal browser all
// go through a [Runner], so cache keys, artifact names and bias handling are
// identical across entry points.
//
// # Stages
//
//  1. Lookup: every requested artifact is looked up in the cache
//  2. Compose: on any miss the four tiers are generated and bias corrected
//  3. Encode: tier PNGs, a flattened preview and a JSON snapshot
//  4. Store: encoded artifacts are written back to the cache
//
// A run that is fully served from the cache skips stages 2 to 4 and returns
// no sprites.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Primary: "voronoi",
//	    Seed:    1234,
//	    Formats: []string{"png", "preview"},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	preview := result.Artifacts["preview.png"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/backdrop/pkg/cache"
	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, Server and Browser
// =============================================================================

const (
	// DefaultDensity is used when Options.Density is empty.
	DefaultDensity = "normal"

	// DefaultMacroCount, DefaultMesoCount and DefaultMicroCount match
	// compose.DefaultRequest.
	DefaultMacroCount = 4
	DefaultMesoCount  = 8
	DefaultMicroCount = 3

	// DefaultPreviewSize is the side of the flattened preview in pixels.
	DefaultPreviewSize = 512

	// MaxPreviewSize bounds preview rendering cost.
	MaxPreviewSize = 4096
)

// Format constants for output formats.
const (
	FormatPNG     = "png"     // one PNG per tier
	FormatPreview = "preview" // flattened, tinted composite
	FormatJSON    = "json"    // quantized snapshot
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatPNG:     true,
	FormatPreview: true,
	FormatJSON:    true,
}

// Artifact names produced by the formats.
const (
	ArtifactPreview  = "preview.png"
	ArtifactSnapshot = "snapshot.json"
)

// TierArtifact returns the artifact name of a tier PNG, e.g. "macro.png".
func TierArtifact(t compose.Tier) string {
	return t.String() + ".png"
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for server requests.
type Options struct {
	// Request options
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary,omitempty"`
	Density    string `json:"density,omitempty"`
	MacroCount int    `json:"macro_count,omitempty"`
	MesoCount  int    `json:"meso_count,omitempty"`
	MicroCount int    `json:"micro_count,omitempty"`
	Seed       uint64 `json:"seed"`
	Level      string `json:"level,omitempty"` // catalog level, recorded in history only
	Refresh    bool   `json:"refresh,omitempty"`

	// Encode options
	Formats     []string `json:"formats,omitempty"`
	PreviewSize int      `json:"preview_size,omitempty"`
	Palette     string   `json:"palette,omitempty"`
	Tint        bool     `json:"tint,omitempty"` // colour tier PNGs with the palette instead of alpha

	// Strict fails the run when the macro tier is still biased.
	Strict bool `json:"strict,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// FromRequest fills the request options from req.
func FromRequest(req compose.Request) Options {
	o := Options{
		Primary:    req.Primary.String(),
		Density:    req.Density.String(),
		MacroCount: req.MacroCount,
		MesoCount:  req.MesoCount,
		MicroCount: req.MicroCount,
		Seed:       req.ZoneSeed,
	}
	if req.Secondary != generator.None {
		o.Secondary = req.Secondary.String()
	}
	return o
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and history.
	RunID uuid.UUID

	// Request is the resolved generation request.
	Request compose.Request

	// PatternHash is the content hash of the request.
	PatternHash string

	// Sprites holds the generated tiers. It is nil when every artifact came
	// from the cache.
	Sprites *compose.Sprites

	// Artifacts contains encoded outputs keyed by artifact name.
	Artifacts map[string][]byte

	// Stats contains timing, size and bias information.
	Stats Stats

	// CacheInfo tracks cache usage.
	CacheInfo CacheInfo
}

// ArtifactNames returns the artifact names in a stable order.
func (r *Result) ArtifactNames() []string {
	names := make([]string, 0, len(r.Artifacts))
	for name := range r.Artifacts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Stats contains pipeline execution statistics.
type Stats struct {
	GenerateTime  time.Duration
	EncodeTime    time.Duration
	TotalTime     time.Duration
	ArtifactBytes int64
	BiasBefore    float64
	BiasAfter     float64
	Iterations    int
	Converged     bool
}

// CacheInfo tracks cache usage for a run.
type CacheInfo struct {
	Hit    bool // Whether all artifacts came from cache
	Stored int  // Number of entries written
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: png, preview, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePreviewSize checks that a preview size is in range.
func ValidatePreviewSize(size int) error {
	if size < 2 || size > MaxPreviewSize {
		return errors.New(errors.ErrCodeInvalidInput,
			"preview size %d out of range [2, %d]", size, MaxPreviewSize)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetRequestDefaults()
	if _, err := o.Request(); err != nil {
		return err
	}
	o.SetEncodeDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidatePreviewSize(o.PreviewSize); err != nil {
		return err
	}
	if _, err := texture.LookupPalette(o.Palette); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetRequestDefaults sets default values for the generation request.
func (o *Options) SetRequestDefaults() {
	o.Primary = strings.ToLower(strings.TrimSpace(o.Primary))
	o.Secondary = strings.ToLower(strings.TrimSpace(o.Secondary))
	if o.Secondary == "none" {
		o.Secondary = ""
	}
	if o.Density == "" {
		o.Density = DefaultDensity
	}
	if o.MacroCount == 0 {
		o.MacroCount = DefaultMacroCount
	}
	if o.MesoCount == 0 {
		o.MesoCount = DefaultMesoCount
	}
	if o.MicroCount == 0 {
		o.MicroCount = DefaultMicroCount
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SetEncodeDefaults sets default values for encoding.
func (o *Options) SetEncodeDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatPNG}
	}
	if o.PreviewSize == 0 {
		o.PreviewSize = DefaultPreviewSize
	}
	if o.Palette == "" {
		o.Palette = texture.DefaultPalette
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Request converts the options into a validated compose.Request.
func (o *Options) Request() (compose.Request, error) {
	if o.Primary == "" {
		return compose.Request{}, errors.New(errors.ErrCodeInvalidFamily, "primary family is required")
	}
	primary, err := generator.ParseFamily(o.Primary)
	if err != nil {
		return compose.Request{}, err
	}
	secondary, err := generator.ParseFamily(o.Secondary)
	if err != nil {
		return compose.Request{}, err
	}
	density, err := generator.ParseDensity(o.Density)
	if err != nil {
		return compose.Request{}, err
	}
	req := compose.Request{
		Primary:    primary,
		Secondary:  secondary,
		Density:    density,
		MacroCount: o.MacroCount,
		MesoCount:  o.MesoCount,
		MicroCount: o.MicroCount,
		ZoneSeed:   o.Seed,
	}
	if err := req.Validate(); err != nil {
		return compose.Request{}, err
	}
	return req, nil
}

// HasFormat reports whether format was requested.
func (o *Options) HasFormat(format string) bool {
	return slices.Contains(o.Formats, format)
}

// ArtifactNames lists the artifacts the requested formats produce.
func (o *Options) ArtifactNames() []string {
	var names []string
	if o.HasFormat(FormatPNG) {
		for _, t := range compose.Tiers {
			names = append(names, TierArtifact(t))
		}
	}
	if o.HasFormat(FormatPreview) {
		names = append(names, ArtifactPreview)
	}
	if o.HasFormat(FormatJSON) {
		names = append(names, ArtifactSnapshot)
	}
	return names
}

// PatternKeyOpts returns cache key options for the generation request.
func (o *Options) PatternKeyOpts() cache.PatternKeyOpts {
	return cache.PatternKeyOpts{
		Primary:    o.Primary,
		Secondary:  o.Secondary,
		Density:    o.Density,
		MacroCount: o.MacroCount,
		MesoCount:  o.MesoCount,
		MicroCount: o.MicroCount,
		Seed:       o.Seed,
	}
}

// ArtifactKeyOpts returns cache key options for one artifact.
func (o *Options) ArtifactKeyOpts(name string) cache.ArtifactKeyOpts {
	base, ext, _ := strings.Cut(name, ".")
	opts := cache.ArtifactKeyOpts{Name: base, Format: ext}
	switch {
	case name == ArtifactPreview:
		opts.Size = o.PreviewSize
		opts.Palette = o.Palette
	case ext == FormatPNG && o.Tint:
		opts.Palette = o.Palette
	}
	return opts
}

// artifactTTL returns how long an artifact is cached.
func artifactTTL(name string) time.Duration {
	if name == ArtifactPreview {
		return cache.TTLPreview
	}
	return cache.TTLArtifact
}

// String renders the options compactly for logs.
func (o Options) String() string {
	return fmt.Sprintf("%s/%s seed=%d formats=%s", o.Primary, o.Density, o.Seed, strings.Join(o.Formats, ","))
}
