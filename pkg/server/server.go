// Package server exposes the toolpath pipeline over HTTP.
//
// # Endpoints
//
//	POST /v1/toolpaths   raw image body; query parameters set pipeline options
//	GET  /healthz        liveness and build version
//
// Query parameter names match the JSON job file keys (mode, absolute,
// metric, z_clearance, ...). The response format is chosen with
// ?format=gcode (default, text/plain), json, strokes or png. Every response
// to /v1/toolpaths carries an X-Job-ID header.
//
// Pipeline failures are reported as JSON {"error": ..., "code": ...} with
// status 400 for INVALID_CONFIG and INVALID_RASTER, 504 when the request
// timeout expires and 500 otherwise. Bodies over the size limit get 413;
// images whose header declares more than Config.MaxPixels pixels are
// rejected as INVALID_RASTER before their pixels are decoded.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/isomill/pkg/observability"
	"github.com/matzehuels/isomill/pkg/pipeline"
	"github.com/matzehuels/isomill/pkg/raster"
)

// Defaults for zero Config fields.
const (
	DefaultAddr            = ":8080"
	DefaultMaxBodyBytes    = 32 << 20
	DefaultRequestTimeout  = 2 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// Config configures a Server.
type Config struct {
	Addr            string
	MaxBodyBytes    int64
	MaxPixels       int64 // image area limit, checked before decoding
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	// Defaults are merged under each request's query parameters.
	// Nil means pipeline.DefaultOptions().
	Defaults *pipeline.Options
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.MaxPixels <= 0 {
		c.MaxPixels = raster.DefaultMaxPixels
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Defaults == nil {
		d := pipeline.DefaultOptions()
		c.Defaults = &d
	}
}

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	cfg    Config
	router chi.Router
}

// New creates a server that runs jobs on runner.
func New(runner *pipeline.Runner, logger *log.Logger, cfg Config) *Server {
	cfg.setDefaults()
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, logger: logger.WithPrefix("serve"), cfg: cfg}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Post("/toolpaths", s.handleToolpaths)
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe binds cfg.Addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// Bind first so port conflicts fail fast.
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully and
// returns nil. ln is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// observe reports every request to the server hooks and logs it.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		d := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), d)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", d)
	})
}
