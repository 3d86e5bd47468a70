package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/isomill/pkg/pipeline"
	"github.com/matzehuels/isomill/pkg/raster"
	"github.com/matzehuels/isomill/pkg/server"
)

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		cfg       server.Config
		config    string
		redisAddr string
		noCache   bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the toolpath pipeline over HTTP",
		Long: `Serve the toolpath pipeline over HTTP.

  POST /v1/toolpaths   raw image body, options as query parameters
  GET  /healthz        liveness

Option flags and --config set the defaults for every request; query
parameters override them per request. With --redis, generated programs
are cached in redis and shared between server instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, err := resolveOptions(cmd, config, opts)
			if err != nil {
				return err
			}
			// Reject bad defaults at startup rather than on every request.
			check := defaults
			if err := check.ValidateAndSetDefaults(); err != nil {
				return err
			}
			cfg.Defaults = &defaults
			return c.runServe(cmd.Context(), cfg, redisAddr, noCache)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for a shared cache (host:port)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Int64Var(&cfg.MaxBodyBytes, "max-body", server.DefaultMaxBodyBytes, "maximum image size in bytes")
	cmd.Flags().Int64Var(&cfg.MaxPixels, "max-pixels", raster.DefaultMaxPixels, "maximum image area in pixels")
	cmd.Flags().DurationVar(&cfg.RequestTimeout, "timeout", server.DefaultRequestTimeout, "per-request pipeline timeout")
	cmd.Flags().StringVarP(&config, "config", "c", "", "job file with default options (.toml, .yaml, .json)")
	addOptionFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg server.Config, redisAddr string, noCache bool) error {
	logger := loggerFromContext(ctx)

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	runner, err := c.newSharedRunner(connectCtx, redisAddr, noCache)
	cancel()
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	printInfo("Listening on %s", StyleValue.Render(cfg.Addr))
	if redisAddr != "" && !noCache {
		printDetail("Cache: redis %s", redisAddr)
	}

	srv := server.New(runner, logger, cfg)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	printSuccess("Server stopped")
	return nil
}
