// Package cli implements the isomill command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/isomill/pkg/buildinfo"
	"github.com/matzehuels/isomill/pkg/cache"
	"github.com/matzehuels/isomill/pkg/observability"
	"github.com/matzehuels/isomill/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "isomill"
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

// SetLogLevel updates the logger's level. At debug level the pipeline,
// cache and server hooks are routed to the logger as well.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
	if level <= log.DebugLevel {
		h := observability.NewLogHooks(c.Logger)
		observability.SetPipelineHooks(h)
		observability.SetCacheHooks(h)
		observability.SetServerHooks(h)
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Isomill turns classified PCB rasters into isolation milling G-code",
		Long: `Isomill traces the boundaries between color regions of a classified PCB
raster, simplifies them into polygons and writes G-code that mills an
isolation channel along every boundary.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.millCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use. Cache keys are scoped by
// the build version.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, versionKeyer(), c.Logger), nil
}

// newSharedRunner creates a runner backed by redis when addr is set, and by
// the local file cache otherwise.
func (c *CLI) newSharedRunner(ctx context.Context, addr string, noCache bool) (*pipeline.Runner, error) {
	if addr == "" || noCache {
		return c.newRunner(noCache)
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{Addr: addr, Namespace: appName})
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(rc, versionKeyer(), c.Logger), nil
}

func versionKeyer() cache.Keyer {
	return cache.NewScopedKeyer(nil, buildinfo.Version+":")
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/isomill/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
