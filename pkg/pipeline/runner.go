package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/cache"
	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/history"
	pkgio "github.com/matzehuels/backdrop/pkg/io"
	"github.com/matzehuels/backdrop/pkg/observability"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// Recorder stores a summary of each completed run. *history.Store
// implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// Runner encapsulates pipeline execution with caching.
// The CLI, the preview server and the browser use it to avoid duplicating
// caching logic.
//
// The Runner is stateless except for its collaborators; it doesn't store
// pipeline results. Multiple goroutines can safely use the same Runner with
// different options.
type Runner struct {
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
	History Recorder // optional
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// biasArtifact caches the bias diagnostics next to the encoded artifacts so
// that cache hits still report them and strict runs can still fail.
const biasArtifact = "bias.json"

type biasMeta struct {
	Report     bias.Report `json:"report"`
	Correction bias.Result `json:"correction"`
}

// Execute runs the complete lookup → compose → encode → store pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	req, err := opts.Request()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result := &Result{
		RunID:     uuid.New(),
		Request:   req,
		Artifacts: make(map[string][]byte),
	}
	result.PatternHash = cache.PatternHash(r.Keyer.PatternKey(opts.PatternKeyOpts()))
	names := opts.ArtifactNames()
	logger := r.Logger.With("run", result.RunID.String()[:8])

	// Stage 1: Lookup
	if !opts.Refresh {
		if artifacts, meta, ok := r.lookup(ctx, result.PatternHash, opts, names); ok {
			result.Artifacts = artifacts
			result.CacheInfo.Hit = true
			result.Stats.setBias(meta.Report, meta.Correction)
			result.Stats.ArtifactBytes = artifactBytes(artifacts)
			result.Stats.TotalTime = time.Since(start)
			logger.Info("served from cache", "request", req, "artifacts", len(artifacts))
			if err := checkStrict(opts, meta.Report); err != nil {
				return nil, err
			}
			r.record(ctx, opts, result)
			return result, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Compose
	hooks := observability.Generate()
	family := req.Primary.String()
	hooks.OnGenerateStart(ctx, family, req.ZoneSeed)
	sprites := compose.New(nil, compose.WithLogger(opts.Logger)).Generate(req)
	hooks.OnGenerateComplete(ctx, family, req.ZoneSeed, sprites.Elapsed, nil)
	hooks.OnBiasCorrected(ctx, family, sprites.Correction.Before.Ratio, sprites.Bias.Ratio,
		sprites.Correction.Iterations, !sprites.Bias.Biased())

	result.Sprites = sprites
	result.Stats.GenerateTime = sprites.Elapsed
	result.Stats.setBias(sprites.Bias, sprites.Correction)

	logger.Info("generated pattern",
		"request", req,
		"ratio", fmt.Sprintf("%.3f", sprites.Bias.Ratio),
		"duration", sprites.Elapsed)

	if err := checkStrict(opts, sprites.Bias); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 3: Encode
	encodeStart := time.Now()
	hooks.OnEncodeStart(ctx, opts.Formats)
	artifacts, err := Encode(req, sprites, opts)
	result.Stats.EncodeTime = time.Since(encodeStart)
	hooks.OnEncodeComplete(ctx, opts.Formats, result.Stats.EncodeTime, err)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.ArtifactBytes = artifactBytes(artifacts)

	logger.Info("encoded artifacts",
		"formats", opts.Formats,
		"bytes", result.Stats.ArtifactBytes,
		"duration", result.Stats.EncodeTime)

	// Stage 4: Store
	result.CacheInfo.Stored = r.store(ctx, result.PatternHash, opts, artifacts, biasMeta{
		Report:     sprites.Bias,
		Correction: sprites.Correction,
	})

	result.Stats.TotalTime = time.Since(start)
	r.record(ctx, opts, result)
	return result, nil
}

// Encode renders the artifacts selected by opts.Formats from sprites.
func Encode(req compose.Request, sprites *compose.Sprites, opts Options) (map[string][]byte, error) {
	palette, err := texture.LookupPalette(opts.Palette)
	if err != nil {
		return nil, err
	}
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		switch format {
		case FormatPNG:
			tints := map[compose.Tier]texture.Materializer{}
			if opts.Tint {
				tints[compose.Macro] = texture.NewTintMaterializer(palette.Background, palette.Macro)
				tints[compose.Meso] = texture.NewTintMaterializer(palette.Background, palette.Meso)
				tints[compose.Accent] = texture.NewTintMaterializer(palette.Background, palette.Accent)
				tints[compose.Micro] = texture.NewTintMaterializer(palette.Background, palette.Micro)
			}
			for _, t := range compose.Tiers {
				sp := sprites.Tier(t)
				if m, ok := tints[t]; ok {
					sp = m.Materialize(texture.FieldFromImage(sp.Image), texture.Options{
						Wrap:          sp.Wrap,
						PixelsPerUnit: sp.PixelsPerUnit,
					})
				}
				data, err := texture.PNGBytes(sp.Image)
				if err != nil {
					return nil, fmt.Errorf("render %s: %w", TierArtifact(t), err)
				}
				artifacts[TierArtifact(t)] = data
			}
		case FormatPreview:
			img, err := texture.Preview(sprites.Layers(), texture.PreviewOptions{
				Size:    opts.PreviewSize,
				Palette: palette,
			})
			if err != nil {
				return nil, fmt.Errorf("render preview: %w", err)
			}
			data, err := texture.PNGBytes(img)
			if err != nil {
				return nil, fmt.Errorf("render preview: %w", err)
			}
			artifacts[ArtifactPreview] = data
		case FormatJSON:
			var buf bytes.Buffer
			if err := pkgio.WriteJSON(pkgio.FromSprites(req, sprites), &buf); err != nil {
				return nil, fmt.Errorf("render snapshot: %w", err)
			}
			artifacts[ArtifactSnapshot] = buf.Bytes()
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}
	}
	return artifacts, nil
}

// lookup returns the cached artifacts if every one of names (and the bias
// diagnostics) is present.
func (r *Runner) lookup(ctx context.Context, patternHash string, opts Options, names []string) (map[string][]byte, biasMeta, bool) {
	hooks := observability.Cache()
	var meta biasMeta

	data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(patternHash, opts.ArtifactKeyOpts(biasArtifact)))
	if err != nil || !hit || json.Unmarshal(data, &meta) != nil {
		hooks.OnCacheMiss(ctx, "bias")
		return nil, meta, false
	}

	artifacts := make(map[string][]byte, len(names))
	for _, name := range names {
		data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(patternHash, opts.ArtifactKeyOpts(name)))
		if err != nil {
			r.Logger.Warn("cache read failed", "artifact", name, "error", err)
		}
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, "artifact")
			return nil, meta, false
		}
		hooks.OnCacheHit(ctx, "artifact")
		artifacts[name] = data
	}
	return artifacts, meta, true
}

// store writes artifacts and bias diagnostics to the cache. Failures are
// logged; a run never fails because the cache is unavailable.
func (r *Runner) store(ctx context.Context, patternHash string, opts Options, artifacts map[string][]byte, meta biasMeta) int {
	hooks := observability.Cache()
	entries := make(map[string][]byte, len(artifacts)+1)
	for name, data := range artifacts {
		entries[name] = data
	}
	if data, err := json.Marshal(meta); err == nil {
		entries[biasArtifact] = data
	}

	stored := 0
	for name, data := range entries {
		key := r.Keyer.ArtifactKey(patternHash, opts.ArtifactKeyOpts(name))
		if err := r.Cache.Set(ctx, key, data, artifactTTL(name)); err != nil {
			r.Logger.Warn("cache write failed", "artifact", name, "error", err)
			continue
		}
		hooks.OnCacheSet(ctx, "artifact", len(data))
		stored++
	}
	return stored
}

// record adds the run to the history store, if any.
func (r *Runner) record(ctx context.Context, opts Options, result *Result) {
	if r.History == nil {
		return
	}
	_, err := r.History.Record(ctx, history.Entry{
		ID:          result.RunID.String(),
		Level:       opts.Level,
		Primary:     opts.Primary,
		Secondary:   opts.Secondary,
		Density:     opts.Density,
		MacroCount:  opts.MacroCount,
		MesoCount:   opts.MesoCount,
		MicroCount:  opts.MicroCount,
		Seed:        opts.Seed,
		PatternHash: result.PatternHash,
		BiasBefore:  result.Stats.BiasBefore,
		BiasAfter:   result.Stats.BiasAfter,
		Iterations:  result.Stats.Iterations,
		Converged:   result.Stats.Converged,
		CacheHit:    result.CacheInfo.Hit,
		Duration:    result.Stats.TotalTime,
		Bytes:       result.Stats.ArtifactBytes,
	})
	if err != nil {
		r.Logger.Warn("history write failed", "error", err)
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func (s *Stats) setBias(report bias.Report, correction bias.Result) {
	s.BiasBefore = correction.Before.Ratio
	s.BiasAfter = report.Ratio
	s.Iterations = correction.Iterations
	s.Converged = !report.Biased()
}

func checkStrict(opts Options, report bias.Report) error {
	if opts.Strict && report.Biased() {
		return &errors.BiasError{Tier: compose.Macro.String(), Ratio: report.Ratio, Limit: bias.Threshold}
	}
	return nil
}

func artifactBytes(artifacts map[string][]byte) int64 {
	var n int64
	for _, data := range artifacts {
		n += int64(len(data))
	}
	return n
}
