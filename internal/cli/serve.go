package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/buildinfo"
	"github.com/matzehuels/backdrop/pkg/catalog"
	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
	"github.com/matzehuels/backdrop/pkg/observability"
	"github.com/matzehuels/backdrop/pkg/pipeline"
	"github.com/matzehuels/backdrop/pkg/texture"
)

const (
	defaultAddr           = "127.0.0.1:8080"
	defaultRequestTimeout = 30 * time.Second
	shutdownTimeout       = 5 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr      string
	catalog   string
	timeout   time.Duration
	noCache   bool
	noHistory bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pattern artifacts over HTTP",
		Long: `Serve pattern artifacts over HTTP for editors and build tools.

Routes:
  GET /v1/families                                  families, densities, palettes
  GET /v1/version                                   build information
  GET /v1/levels                                    catalog levels (with --catalog)
  GET /v1/levels/{level}/{artifact}                 artifact of a catalog level
  GET /v1/patterns/{family}/{seed}/{artifact}       artifact of an ad-hoc pattern

Artifacts are macro.png, meso.png, accent.png, micro.png, preview.png and
snapshot.json. Pattern routes accept the query parameters density, secondary,
macro, meso, micro, size, palette, tint and strict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringVarP(&opts.catalog, "catalog", "c", "", "TOML level catalog to serve")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultRequestTimeout, "per-request generation timeout")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")
	cmd.Flags().BoolVar(&opts.noHistory, "no-history", false, "do not record runs in the history")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	srv := &Server{Logger: c.Logger, Timeout: opts.timeout}
	if opts.catalog != "" {
		cat, err := catalog.Load(opts.catalog)
		if err != nil {
			return err
		}
		srv.Catalog = cat
	}

	runner, store, err := c.newRunner(ctx, runnerOpts{noCache: opts.noCache, noHistory: opts.noHistory})
	if err != nil {
		return err
	}
	defer runner.Close()
	if store != nil {
		defer store.Close()
	}
	srv.Runner = runner

	httpSrv := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	uptime := newProgress(c.Logger)
	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.ListenAndServe()
	}()
	printSuccess("Serving on http://%s", opts.addr)
	if srv.Catalog != nil {
		printDetail("%d levels from %s", srv.Catalog.Len(), opts.catalog)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	c.Logger.Info("shutting down")
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	uptime.done("server stopped")
	return ctx.Err()
}

// =============================================================================
// Server
// =============================================================================

// Server serves pattern artifacts. Every artifact is a pure function of its
// URL, so responses carry a strong ETag and are cacheable forever.
type Server struct {
	Runner  *pipeline.Runner
	Catalog *catalog.Catalog // optional
	Logger  *log.Logger
	Timeout time.Duration
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(serverHeader)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/families", s.handleFamilies)
		r.Get("/version", s.handleVersion)
		r.Get("/levels", s.handleLevels)
		r.Get("/levels/{level}/{artifact}", s.handleLevelArtifact)
		r.Get("/patterns/{family}/{seed}/{artifact}", s.handlePatternArtifact)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no route %s", r.URL.Path))
	})
	return r
}

// requestLogger attaches the logger to the request context, emits HTTP hooks
// and logs each response.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		r = r.WithContext(withLogger(r.Context(), s.Logger))

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, route)
		hooks.OnResponse(r.Context(), r.Method, route, ww.Status(), time.Since(start))

		s.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

func serverHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", buildinfo.UserAgent())
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Handlers
// =============================================================================

// familiesResponse lists the accepted parameter values.
type familiesResponse struct {
	Families  []string `json:"families"`
	Densities []string `json:"densities"`
	Palettes  []string `json:"palettes"`
	Artifacts []string `json:"artifacts"`
}

func (s *Server) handleFamilies(w http.ResponseWriter, r *http.Request) {
	artifacts := make([]string, 0, len(compose.Tiers)+2)
	for _, t := range compose.Tiers {
		artifacts = append(artifacts, pipeline.TierArtifact(t))
	}
	artifacts = append(artifacts, pipeline.ArtifactPreview, pipeline.ArtifactSnapshot)

	writeJSON(w, http.StatusOK, familiesResponse{
		Families:  generator.FamilyNames(),
		Densities: []string{generator.Sparse.String(), generator.Normal.String(), generator.Dense.String()},
		Palettes:  texture.PaletteNames(),
		Artifacts: artifacts,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Get())
}

// levelResponse is one catalog level.
type levelResponse struct {
	Name    string          `json:"name"`
	Request compose.Request `json:"request"`
	Palette string          `json:"palette"`
	Derived bool            `json:"derived_seed"`
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	out := []levelResponse{}
	if s.Catalog != nil {
		for _, e := range s.Catalog.Entries() {
			out = append(out, levelResponse{Name: e.Name, Request: e.Request, Palette: e.Palette, Derived: e.Derived})
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLevelArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "level")
	if s.Catalog == nil {
		writeError(w, errors.New(errors.ErrCodeLevelNotFound, "no catalog loaded"))
		return
	}
	e, ok := s.Catalog.Lookup(name)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeLevelNotFound, "no level %q", name))
		return
	}
	opts := pipeline.FromRequest(e.Request)
	opts.Level = e.Name
	opts.Palette = e.Palette
	if err := applyEncodeQuery(&opts, r); err != nil {
		writeError(w, err)
		return
	}
	s.serveArtifact(w, r, opts, chi.URLParam(r, "artifact"))
}

func (s *Server) handlePatternArtifact(w http.ResponseWriter, r *http.Request) {
	seed, err := errors.ParseSeed(chi.URLParam(r, "seed"))
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	opts := pipeline.Options{
		Primary:   chi.URLParam(r, "family"),
		Secondary: q.Get("secondary"),
		Density:   q.Get("density"),
		Seed:      seed,
	}
	for _, c := range []struct {
		key string
		dst *int
	}{
		{"macro", &opts.MacroCount},
		{"meso", &opts.MesoCount},
		{"micro", &opts.MicroCount},
	} {
		if v := q.Get(c.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, errors.New(errors.ErrCodeInvalidInput, "%s must be an integer, got %q", c.key, v))
				return
			}
			*c.dst = n
		}
	}
	if err := applyEncodeQuery(&opts, r); err != nil {
		writeError(w, err)
		return
	}
	s.serveArtifact(w, r, opts, chi.URLParam(r, "artifact"))
}

// applyEncodeQuery reads the encoding query parameters shared by all
// artifact routes.
func applyEncodeQuery(opts *pipeline.Options, r *http.Request) error {
	q := r.URL.Query()
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidInput, "size must be an integer, got %q", v)
		}
		opts.PreviewSize = n
	}
	if v := q.Get("palette"); v != "" {
		opts.Palette = v
	}
	var err error
	if opts.Tint, err = queryBool(q.Get("tint")); err != nil {
		return err
	}
	if opts.Strict, err = queryBool(q.Get("strict")); err != nil {
		return err
	}
	return nil
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New(errors.ErrCodeInvalidInput, "invalid boolean %q", v)
	}
	return b, nil
}

// artifactFormat maps an artifact file name to the format producing it.
func artifactFormat(name string) (format, contentType string, ok bool) {
	switch name {
	case pipeline.ArtifactPreview:
		return pipeline.FormatPreview, "image/png", true
	case pipeline.ArtifactSnapshot:
		return pipeline.FormatJSON, "application/json", true
	}
	tier, found := strings.CutSuffix(name, ".png")
	if !found {
		return "", "", false
	}
	if _, err := compose.ParseTier(tier); err != nil || tier != strings.ToLower(tier) {
		return "", "", false
	}
	return pipeline.FormatPNG, "image/png", true
}

// serveArtifact runs the pipeline for a single format and writes one
// artifact with caching headers.
func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, opts pipeline.Options, artifact string) {
	format, contentType, ok := artifactFormat(artifact)
	if !ok {
		writeError(w, errors.New(errors.ErrCodeNotFound, "unknown artifact %q", artifact))
		return
	}
	opts.Formats = []string{format}
	opts.Logger = s.Logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	result, err := s.Runner.Execute(ctx, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	data, ok := result.Artifacts[artifact]
	if !ok {
		writeError(w, errors.New(errors.ErrCodeInternal, "artifact %q missing from result", artifact))
		return
	}

	etag := artifactETag(result.PatternHash, opts, artifact)
	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Cache-Control", "public, max-age=31536000, immutable")
	h.Set("X-Backdrop-Run", result.RunID.String())
	h.Set("X-Backdrop-Bias", strconv.FormatFloat(result.Stats.BiasAfter, 'f', 4, 64))
	if result.CacheInfo.Hit {
		h.Set("X-Backdrop-Cache", "hit")
	} else {
		h.Set("X-Backdrop-Cache", "miss")
	}
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// artifactETag derives a strong validator from the pattern hash and the
// options that change the encoded bytes.
func artifactETag(patternHash string, opts pipeline.Options, artifact string) string {
	h := patternHash
	if len(h) > 16 {
		h = h[:16]
	}
	return fmt.Sprintf(`"%s-%s"`, h, opts.ArtifactKeyOpts(artifact).String())
}

// =============================================================================
// Responses
// =============================================================================

// errorResponse is the JSON body of every error.
type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, errorResponse{Error: errors.UserMessage(err), Code: code})
}

// statusFor maps an error to an HTTP status and error code.
func statusFor(err error) (int, errors.Code) {
	var be *errors.BiasError
	if stderrors.As(err, &be) {
		return http.StatusUnprocessableEntity, be.Code()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, errors.ErrCodeTimeout
	}
	code := errors.GetCode(err)
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFamily, errors.ErrCodeInvalidDensity,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidCatalog, errors.ErrCodeInvalidPath,
		errors.ErrCodeUnsupported:
		return http.StatusBadRequest, code
	case errors.ErrCodeNotFound, errors.ErrCodeLevelNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound, code
	case errors.ErrCodeCacheUnavailable:
		return http.StatusServiceUnavailable, code
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, code
	case "":
		return http.StatusInternalServerError, errors.ErrCodeInternal
	}
	return http.StatusInternalServerError, code
}
