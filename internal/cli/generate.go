package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/catalog"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/pipeline"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	// Pattern selection
	level      string
	catalog    string
	all        bool
	secondary  string
	density    string
	macroCount int
	mesoCount  int
	microCount int

	// Output
	output      string
	formats     string
	previewSize int
	palette     string
	tint        bool

	// Behavior
	strict    bool
	refresh   bool
	noCache   bool
	noHistory bool
}

// job is one pattern to generate and the directory name it is written to.
type job struct {
	name string
	opts pipeline.Options
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate [family] [seed]",
		Short: "Generate pattern tiers for a family and seed or catalog levels",
		Long: `Generate the four pattern tiers and write them to disk.

A pattern is selected either by family and seed on the command line or by
level name from a TOML catalog. Each pattern is written to its own directory
under the output path, named after the level or as <family>-<seed>.`,
		Example: `  # Voronoi regions, seed 42, tier PNGs plus a composited preview
  backdrop generate voronoi 42 -f png,preview

  # One level from a catalog
  backdrop generate --catalog levels.toml --level canyon-02

  # Every level in a catalog, failing on residual center bias
  backdrop generate --catalog levels.toml --all --strict`,
		Args:              cobra.MaximumNArgs(2),
		ValidArgsFunction: completeFamilyArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := opts.jobs(args)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), jobs, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.level, "level", "l", "", "catalog level to generate")
	cmd.Flags().StringVarP(&opts.catalog, "catalog", "c", "", "TOML level catalog")
	cmd.Flags().BoolVar(&opts.all, "all", false, "generate every level in the catalog")
	cmd.Flags().StringVar(&opts.secondary, "secondary", "", "secondary (accent) family")
	cmd.Flags().StringVar(&opts.density, "density", "", "density: sparse, normal (default), dense")
	cmd.Flags().IntVar(&opts.macroCount, "macro", 0, "macro feature count")
	cmd.Flags().IntVar(&opts.mesoCount, "meso", 0, "meso feature count")
	cmd.Flags().IntVar(&opts.microCount, "micro", 0, "micro feature count")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): png (default), preview, json (comma-separated)")
	cmd.Flags().IntVar(&opts.previewSize, "preview-size", pipeline.DefaultPreviewSize, "preview edge length in pixels")
	cmd.Flags().StringVar(&opts.palette, "palette", "", "palette for the preview and tinted tiers")
	cmd.Flags().BoolVar(&opts.tint, "tint", false, "colour tier PNGs with the palette")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail when the macro tier stays center biased")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "regenerate even when cached")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record runs in the history")
	registerPatternCompletions(cmd)

	return cmd
}

// jobs resolves the positional arguments and selection flags into the list
// of patterns to generate.
func (o generateOpts) jobs(args []string) ([]job, error) {
	if o.level != "" || o.all {
		if len(args) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "family and seed arguments cannot be combined with --level or --all")
		}
		if o.catalog == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "--level and --all require --catalog")
		}
		cat, err := catalog.Load(o.catalog)
		if err != nil {
			return nil, err
		}
		var entries []catalog.Entry
		if o.all {
			entries = cat.Entries()
		} else {
			e, ok := cat.Lookup(o.level)
			if !ok {
				return nil, errors.New(errors.ErrCodeLevelNotFound, "level %q not in %s", o.level, o.catalog)
			}
			entries = []catalog.Entry{e}
		}
		jobs := make([]job, len(entries))
		for i, e := range entries {
			opts := pipeline.FromRequest(e.Request)
			opts.Level = e.Name
			opts.Palette = e.Palette
			jobs[i] = job{name: e.Name, opts: o.apply(opts)}
		}
		return jobs, nil
	}

	if len(args) != 2 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected <family> <seed>, or --catalog with --level or --all")
	}
	seed, err := errors.ParseSeed(args[1])
	if err != nil {
		return nil, err
	}
	opts := o.apply(pipeline.Options{
		Primary:    args[0],
		Secondary:  o.secondary,
		Density:    o.density,
		MacroCount: o.macroCount,
		MesoCount:  o.mesoCount,
		MicroCount: o.microCount,
		Seed:       seed,
	})
	name := fmt.Sprintf("%s-%d", strings.ToLower(strings.TrimSpace(args[0])), seed)
	return []job{{name: name, opts: opts}}, nil
}

// apply copies the output flags onto opts. Flags that override the pattern
// itself only apply when they were set.
func (o generateOpts) apply(opts pipeline.Options) pipeline.Options {
	if o.secondary != "" {
		opts.Secondary = o.secondary
	}
	if o.density != "" {
		opts.Density = o.density
	}
	if o.macroCount != 0 {
		opts.MacroCount = o.macroCount
	}
	if o.mesoCount != 0 {
		opts.MesoCount = o.mesoCount
	}
	if o.microCount != 0 {
		opts.MicroCount = o.microCount
	}
	if o.palette != "" {
		opts.Palette = o.palette
	}
	opts.Formats = parseFormats(o.formats)
	opts.PreviewSize = o.previewSize
	opts.Tint = o.tint
	opts.Strict = o.strict
	opts.Refresh = o.refresh
	return opts
}

// runGenerate executes every job and writes the artifacts. With several
// jobs, a failing level is reported and the rest still run; the first error
// is returned at the end.
func (c *CLI) runGenerate(ctx context.Context, jobs []job, opts generateOpts) error {
	// Validate everything up front so a typo in the last level does not
	// surface after the first ones were written.
	for i := range jobs {
		jobs[i].opts.Logger = c.Logger
		if err := jobs[i].opts.ValidateAndSetDefaults(); err != nil {
			return fmt.Errorf("%s: %w", jobs[i].name, err)
		}
	}

	runner, store, err := c.newRunner(ctx, runnerOpts{noCache: opts.noCache, noHistory: opts.noHistory})
	if err != nil {
		return err
	}
	defer runner.Close()
	if store != nil {
		defer store.Close()
	}

	start := time.Now()
	spinner := newSpinnerWithContext(ctx, "Generating...")
	spinner.Start()

	var firstErr error
	var written []string
	for i, j := range jobs {
		spinner.Update(fmt.Sprintf("Generating %s (%d/%d)...", j.name, i+1, len(jobs)))

		result, err := runner.Execute(ctx, j.opts)
		if err != nil {
			if ctx.Err() != nil {
				spinner.Stop()
				return ctx.Err()
			}
			if len(jobs) == 1 {
				spinner.Stop()
				return err
			}
			c.Logger.Error("generation failed", "level", j.name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", j.name, err)
			}
			continue
		}

		paths, err := writeArtifacts(filepath.Join(opts.output, j.name), result)
		if err != nil {
			spinner.Stop()
			return err
		}
		written = append(written, paths...)

		if len(jobs) == 1 {
			spinner.StopWithSuccess(fmt.Sprintf("Generated %s", result.Request))
			for _, p := range paths {
				printFile(p, len(result.Artifacts[filepath.Base(p)]))
			}
			printRunStats(result.Stats, result.CacheInfo.Hit)
		}
	}

	if len(jobs) > 1 {
		spinner.Stop()
		if firstErr == nil {
			printSuccess("Generated %d levels %s", len(jobs), StyleDim.Render(fmt.Sprintf("(%s)", time.Since(start).Round(time.Millisecond))))
		}
		printDetail("%d files written to %s", len(written), opts.output)
	}
	return firstErr
}

// writeArtifacts writes every artifact of result into dir and returns the
// written paths in artifact order.
func writeArtifacts(dir string, result *pipeline.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", dir)
	}
	var paths []string
	for _, name := range result.ArtifactNames() {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, result.Artifacts[name], 0o644); err != nil {
			return paths, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
