// Package pkg provides the core libraries for backdrop procedural backgrounds.
//
// # Overview
//
// Backdrop turns a pattern family, a density and a 64-bit seed into four
// layered grayscale tiers that games composite behind the play field. The
// same request always yields the same pixels. The pkg directory is organized
// into three areas:
//
//  1. Pattern core: [rng], [field], [generator], [bias], [texture], [compose]
//  2. Orchestration: [pipeline], [catalog], [io]
//  3. Infrastructure: [cache], [history], [observability], [errors], [buildinfo]
//
// # Architecture
//
// The data flow through backdrop:
//
//	Catalog level or family + seed
//	         ↓
//	    [compose] Request
//	         ↓
//	    [generator] fields per tier ([rng] streams, [field] grids)
//	         ↓
//	    [bias] center bias correction (macro tier)
//	         ↓
//	    [texture] sprites, previews, PNG
//	         ↓
//	    [pipeline] artifacts, [cache], [history]
//
// # Quick Start
//
// Generate the four tiers for one request:
//
//	import (
//	    "github.com/matzehuels/backdrop/pkg/compose"
//	    "github.com/matzehuels/backdrop/pkg/generator"
//	)
//
//	req := compose.DefaultRequest(generator.VoronoiRegions, 42)
//	sprites := compose.New(nil).Generate(req)
//	// sprites.Macro, sprites.Meso, sprites.Accent, sprites.Micro
//
// Or run the cached pipeline that the CLI and server use:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), cache.NewDefaultKeyer(), nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Primary: "voronoi",
//	    Seed:    42,
//	    Formats: []string{pipeline.FormatPNG, pipeline.FormatPreview},
//	})
//
// # Main Packages
//
// ## Pattern Core
//
// [rng] - Splittable deterministic random streams. Every generator draws from
// a stream derived from the zone seed and a fixed label, so adding a tier
// never shifts the values of another.
//
// [field] - Row-major float grids with blur, normalization and the
// statistics used by inspect and compare.
//
// [generator] - The six pattern families (lines, bands, voronoi, shards,
// waves, fractal), accent noise, seamless micro detail and the per-family
// resolution table.
//
// [bias] - Center/periphery ratio measurement and iterative correction.
//
// [texture] - Materializers from fields to sprites, palettes, tinting and
// composited previews.
//
// [compose] - The composer that builds all four tiers for a request.
//
// ## Orchestration
//
// [pipeline] - Cache lookup, generation, encoding and storage for one run.
//
// [catalog] - TOML level catalogs resolved to requests.
//
// [io] - JSON snapshots of generated tiers for regression comparison.
//
// ## Infrastructure
//
// [cache] - File, Redis, MongoDB and tiered artifact caches.
//
// [history] - SQLite run history.
//
// [observability] - Hooks for generation, cache and HTTP events.
package pkg
