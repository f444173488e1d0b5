// Package cli implements the backdrop command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/buildinfo"
	"github.com/matzehuels/backdrop/pkg/cache"
	"github.com/matzehuels/backdrop/pkg/history"
	"github.com/matzehuels/backdrop/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = buildinfo.Name

	// Environment variables selecting shared cache backends.
	envRedisAddr      = "BACKDROP_REDIS_ADDR"
	envMongoURI       = "BACKDROP_MONGO_URI"
	envCacheNamespace = "BACKDROP_CACHE_NAMESPACE"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Backdrop generates layered procedural background patterns",
		Long: `Backdrop generates deterministic, non-repeating background patterns.

Each pattern is four layered tiers (macro, meso, accent, micro) produced from
a family, a density and a seed. The macro tier is checked for center bias and
corrected so that backgrounds never draw the eye to the middle of the screen.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.compareCommand())
	root.AddCommand(c.catalogCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// runnerOpts selects the collaborators of a CLI runner.
type runnerOpts struct {
	noCache   bool
	noHistory bool
}

// newRunner creates a pipeline runner for CLI use. The caller closes both the
// runner and the returned history store (which may be nil).
func (c *CLI) newRunner(ctx context.Context, opts runnerOpts) (*pipeline.Runner, *history.Store, error) {
	cc, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return nil, nil, err
	}
	runner := pipeline.NewRunner(cc, newKeyer(), c.Logger)
	if opts.noHistory {
		return runner, nil, nil
	}

	store, err := openHistory()
	if err != nil {
		c.Logger.Warn("history disabled", "error", err)
		return runner, nil, nil
	}
	runner.History = store
	return runner, store, nil
}

// newCache builds the cache stack from the environment. A reachable Redis
// fronts the durable tier, which is MongoDB when configured and the local
// file cache otherwise. Unreachable backends are skipped with a warning.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}

	var back cache.Cache
	if uri := os.Getenv(envMongoURI); uri != "" {
		mc, err := cache.NewMongoCache(ctx, cache.MongoConfig{URI: uri})
		if err != nil {
			c.Logger.Warn("mongo cache unavailable", "error", err)
		} else {
			back = mc
		}
	}
	if back == nil {
		dir, err := cacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		back = fc
	}

	if addr := os.Getenv(envRedisAddr); addr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: addr})
		if err != nil {
			c.Logger.Warn("redis cache unavailable", "error", err)
			return back, nil
		}
		return cache.NewTieredCache(rc, back), nil
	}
	return back, nil
}

// newKeyer returns the default keyer, scoped when a namespace is configured
// so that several projects can share one Redis or Mongo deployment.
func newKeyer() cache.Keyer {
	keyer := cache.NewDefaultKeyer()
	if ns := strings.TrimSpace(os.Getenv(envCacheNamespace)); ns != "" {
		keyer = cache.NewScopedKeyer(keyer, ns+":")
	}
	return keyer
}

// openHistory opens the run history at its default location.
func openHistory() (*history.Store, error) {
	path, err := history.DefaultPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/backdrop/).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatPNG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
