package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isomill/pkg/boundary"
	"github.com/matzehuels/isomill/pkg/cache"
	"github.com/matzehuels/isomill/pkg/contour"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/gcode"
	strokeio "github.com/matzehuels/isomill/pkg/io"
	"github.com/matzehuels/isomill/pkg/observability"
	"github.com/matzehuels/isomill/pkg/optimize"
	"github.com/matzehuels/isomill/pkg/progress"
	"github.com/matzehuels/isomill/pkg/raster"
)

const keyTypeProgram = "program"

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
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

// Execute runs all four stages with caching. A cache hit skips every stage.
// Failed or cancelled runs are never cached; a cancelled run still returns
// its partial result as described at [Runner.Run].
func (r *Runner) Execute(ctx context.Context, img raster.Raster, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := raster.Validate(img); err != nil {
		return nil, ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "input raster")
	}

	hash := raster.Hash(img)
	key := r.Keyer.ProgramKey(hash, opts.ProgramKeyOpts())

	if !opts.Refresh {
		if res, ok := r.lookup(ctx, key, opts.Logger); ok {
			res.RasterHash = hash
			return res, nil
		}
	}

	res, err := r.Run(ctx, img, opts)
	if err != nil {
		if res != nil {
			res.RasterHash = hash
		}
		return res, err
	}
	res.RasterHash = hash
	r.store(ctx, key, res, opts.Logger)
	return res, nil
}

// Run executes the stages without consulting the cache.
//
// When ctx is cancelled mid-run, Run returns a Result with Partial set
// alongside the wrapped ctx.Err(). Its Stats cover the completed stages and
// what the interrupted stage produced; when serialization was interrupted,
// Program and Strokes hold the paths visited so far. GCode is never set on
// a partial result. Any other failure returns a nil Result.
func (r *Runner) Run(ctx context.Context, img raster.Raster, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := raster.Validate(img); err != nil {
		return nil, ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "input raster")
	}
	logger := opts.Logger
	res := &Result{Stats: Stats{Width: img.Width(), Height: img.Height()}}
	st := &res.Stats

	// Stage 1: Boundary
	var g *boundary.Graph
	err := runStage(ctx, progress.StageBoundary, &st.BoundaryTime, func() (int, error) {
		var err error
		g, err = boundary.Build(ctx, img, opts.Progress)
		if g == nil {
			return 0, err
		}
		return g.Len(), err
	})
	if g != nil {
		st.Nodes = g.Len()
		st.Edges = len(g.Edges())
	}
	if err != nil {
		return partial(ctx, res, err)
	}
	logger.Info("built boundary graph",
		"nodes", st.Nodes,
		"edges", st.Edges,
		"duration", st.BoundaryTime)

	// Stage 2: Extract
	var cs []contour.Contour
	err = runStage(ctx, progress.StageExtract, &st.ExtractTime, func() (int, error) {
		var err error
		cs, err = contour.Extract(ctx, g, opts.Progress)
		return len(cs), err
	})
	cst := contour.Summarize(cs)
	st.Contours = cst.Contours
	st.Segments = cst.Segments
	if err != nil {
		return partial(ctx, res, err)
	}
	logger.Info("extracted contours",
		"contours", cst.Contours,
		"closed", cst.Closed,
		"segments", cst.Segments,
		"duration", st.ExtractTime)

	// Stage 3: Optimize
	var paths []optimize.Path
	err = runStage(ctx, progress.StageOptimize, &st.OptimizeTime, func() (int, error) {
		var err error
		paths, err = optimize.All(ctx, cs, opts.Transform(img.Height()), opts.EffectiveTolerance(), opts.Progress, logger)
		return len(paths), err
	})
	ost := optimize.Summarize(paths)
	st.Paths = ost.Paths
	st.Vertices = ost.Vertices
	if err != nil {
		return partial(ctx, res, err)
	}
	st.Skipped = len(cs) - len(paths)
	logger.Info("optimized paths",
		"paths", ost.Paths,
		"vertices", ost.Vertices,
		"skipped", st.Skipped,
		"length", fmt.Sprintf("%.4fin", ost.Length),
		"duration", st.OptimizeTime)

	// Stage 4: Serialize
	var buf bytes.Buffer
	err = runStage(ctx, progress.StageSerialize, &st.SerializeTime, func() (int, error) {
		prog, err := gcode.Serialize(ctx, paths, opts.Start(), opts.Settings(), opts.Progress)
		res.Program = prog
		if err != nil {
			if prog == nil {
				return 0, err
			}
			return len(prog.Moves), err
		}
		if _, err := prog.WriteTo(&buf); err != nil {
			return len(prog.Moves), err
		}
		return len(prog.Moves), nil
	})
	if res.Program != nil {
		res.Strokes = res.Program.Strokes
		pst := res.Program.Stats()
		st.Moves = pst.Moves
		st.CutLength = pst.CutLength
		st.TravelLength = pst.TravelLength
	}
	if err != nil {
		return partial(ctx, res, err)
	}
	res.GCode = buf.Bytes()
	logger.Info("serialized program",
		"moves", st.Moves,
		"bytes", len(res.GCode),
		"duration", st.SerializeTime)

	return res, nil
}

// partial returns res with err when the run was cancelled. Other failures
// drop the result.
func partial(ctx context.Context, res *Result, err error) (*Result, error) {
	if ctx.Err() == nil {
		return nil, err
	}
	res.Partial = true
	res.GCode = nil
	return res, err
}

// runStage times fn and reports it to the pipeline hooks. fn returns the
// stage's output size.
func runStage(ctx context.Context, stage progress.Stage, d *time.Duration, fn func() (int, error)) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, stage)
	start := time.Now()
	n, err := fn()
	*d = time.Since(start)
	hooks.OnStageComplete(ctx, stage, n, *d, err)
	if err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

// cachedProgram is the cache entry for a rendered program.
type cachedProgram struct {
	GCode   []byte          `json:"gcode"`
	Strokes json.RawMessage `json:"strokes"`
	Stats   Stats           `json:"stats"`
}

func (r *Runner) lookup(ctx context.Context, key string, logger *log.Logger) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache lookup failed", "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyTypeProgram)
		return nil, false
	}

	var entry cachedProgram
	if err := json.Unmarshal(data, &entry); err != nil {
		// If deserialization fails, fall through to recompute
		observability.Cache().OnCacheMiss(ctx, keyTypeProgram)
		return nil, false
	}
	strokes, _, err := strokeio.ReadStrokes(bytes.NewReader(entry.Strokes))
	if err != nil {
		observability.Cache().OnCacheMiss(ctx, keyTypeProgram)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyTypeProgram)
	logger.Info("using cached program", "moves", entry.Stats.Moves)
	return &Result{
		GCode:    entry.GCode,
		Strokes:  strokes,
		Stats:    entry.Stats,
		CacheHit: true,
	}, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result, logger *log.Logger) {
	var strokes bytes.Buffer
	if err := strokeio.WriteStrokes(res.Strokes, res.Program.Settings.Units(), &strokes); err != nil {
		return
	}
	data, err := json.Marshal(cachedProgram{GCode: res.GCode, Strokes: strokes.Bytes(), Stats: res.Stats})
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.TTLProgram); err != nil {
		logger.Warn("cache store failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeProgram, len(data))
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
