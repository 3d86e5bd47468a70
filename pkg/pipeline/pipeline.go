// Package pipeline runs the raster-to-G-code toolpath pipeline.
//
// This package ties the stage packages together so the CLI and the HTTP API
// share one implementation of defaults, validation, caching and logging.
//
// # Architecture
//
// The pipeline consists of four stages, run strictly in order:
//
//  1. Boundary: build the boundary graph from the raster ([boundary.Build])
//  2. Extract: trace the graph into contours ([contour.Extract])
//  3. Optimize: simplify contours into model-space paths ([optimize.All])
//  4. Serialize: order the paths and emit the program ([gcode.Serialize])
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Metric = true
//	result, err := runner.Execute(ctx, img, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(result.GCode)
//
// [boundary.Build]: github.com/matzehuels/isomill/pkg/boundary.Build
// [contour.Extract]: github.com/matzehuels/isomill/pkg/contour.Extract
// [optimize.All]: github.com/matzehuels/isomill/pkg/optimize.All
// [gcode.Serialize]: github.com/matzehuels/isomill/pkg/gcode.Serialize
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isomill/pkg/buildinfo"
	"github.com/matzehuels/isomill/pkg/cache"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/gcode"
	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/optimize"
	"github.com/matzehuels/isomill/pkg/progress"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// Raster geometry modes. The mode names which upstream geometry produced the
// raster; it is recorded in the program header and cache key.
const (
	ModeVoronoi = "voronoi"
	ModeOutline = "outline"
)

const (
	// DefaultMode is the default geometry mode.
	DefaultMode = ModeVoronoi

	// DefaultZClearance is the default travel height in inches.
	DefaultZClearance = 0.1

	// DefaultFeedrate is the default plunge and milling feedrate.
	DefaultFeedrate = 2.0

	// DefaultResolution is the default raster resolution in pixels per inch.
	DefaultResolution = 1000.0
)

// ValidModes is the set of supported geometry modes.
var ValidModes = []string{ModeVoronoi, ModeOutline}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run. All lengths are in
// inches; Metric only changes the emitted units.
//
// Start from [DefaultOptions]: ZClearance, the feedrates and Resolution must
// be positive and an explicit zero is rejected, not replaced. An empty Mode
// means [DefaultMode].
type Options struct {
	Mode     string `json:"mode,omitempty" toml:"mode" yaml:"mode"`
	Absolute bool   `json:"absolute,omitempty" toml:"absolute" yaml:"absolute"`
	Metric   bool   `json:"metric,omitempty" toml:"metric" yaml:"metric"`

	ZClearance      float64 `json:"z_clearance,omitempty" toml:"z_clearance" yaml:"z_clearance"`
	ZCuttingHeight  float64 `json:"z_cutting_height,omitempty" toml:"z_cutting_height" yaml:"z_cutting_height"`
	AbsoluteXStart  float64 `json:"absolute_x_start,omitempty" toml:"absolute_x_start" yaml:"absolute_x_start"`
	AbsoluteYStart  float64 `json:"absolute_y_start,omitempty" toml:"absolute_y_start" yaml:"absolute_y_start"`
	PlungeFeedrate  float64 `json:"plunge_feedrate,omitempty" toml:"plunge_feedrate" yaml:"plunge_feedrate"`
	MillingFeedrate float64 `json:"milling_feedrate,omitempty" toml:"milling_feedrate" yaml:"milling_feedrate"`

	Resolution float64 `json:"resolution,omitempty" toml:"resolution" yaml:"resolution"` // pixels per inch
	OriginX    float64 `json:"origin_x,omitempty" toml:"origin_x" yaml:"origin_x"`       // model X of the raster's left edge
	OriginY    float64 `json:"origin_y,omitempty" toml:"origin_y" yaml:"origin_y"`       // model Y of the raster's bottom edge
	StartX     float64 `json:"start_x,omitempty" toml:"start_x" yaml:"start_x"`
	StartY     float64 `json:"start_y,omitempty" toml:"start_y" yaml:"start_y"`
	Tolerance  float64 `json:"tolerance,omitempty" toml:"tolerance" yaml:"tolerance"` // 0 means half a pixel

	// Refresh skips the cache lookup but still stores the result.
	Refresh bool `json:"refresh,omitempty" toml:"-" yaml:"-"`

	// Runtime options (not serialized)
	Logger   *log.Logger       `json:"-" toml:"-" yaml:"-"`
	Progress progress.Reporter `json:"-" toml:"-" yaml:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Program is the serialized program. It is nil when the result came
	// from the cache; GCode and Strokes are always set.
	Program *gcode.Program

	// GCode is the rendered program text.
	GCode []byte

	// Strokes are the recorded moves for visualizers.
	Strokes []gcode.Stroke

	// RasterHash is the content hash of the input raster.
	RasterHash string

	// Stats contains counts and timings.
	Stats Stats

	// CacheHit reports whether the result came from the cache.
	CacheHit bool

	// Partial reports a run cut short by cancellation; see [Runner.Run].
	Partial bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	Nodes    int `json:"nodes"`
	Edges    int `json:"edges"`
	Contours int `json:"contours"`
	Segments int `json:"segments"`
	Paths    int `json:"paths"`
	Vertices int `json:"vertices"`
	Skipped  int `json:"skipped"` // degenerate contours
	Moves    int `json:"moves"`

	CutLength    float64 `json:"cut_length"`    // inches
	TravelLength float64 `json:"travel_length"` // inches

	BoundaryTime  time.Duration `json:"boundary_time"`
	ExtractTime   time.Duration `json:"extract_time"`
	OptimizeTime  time.Duration `json:"optimize_time"`
	SerializeTime time.Duration `json:"serialize_time"`
}

// =============================================================================
// Options Methods
// =============================================================================

// DefaultOptions returns options with every default applied. Job files,
// command-line flags and query parameters are all layered on top of it.
func DefaultOptions() Options {
	return Options{
		Mode:            DefaultMode,
		ZClearance:      DefaultZClearance,
		PlungeFeedrate:  DefaultFeedrate,
		MillingFeedrate: DefaultFeedrate,
		Resolution:      DefaultResolution,
	}
}

// ValidateAndSetDefaults fills the runtime defaults (empty Mode, nil Logger)
// and checks every field. Numeric fields are never defaulted here.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Mode == "" {
		o.Mode = DefaultMode
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Validate checks every field without applying defaults. Failures carry the
// INVALID_CONFIG code.
func (o *Options) Validate() error {
	if err := ierrors.ValidateOneOf("mode", o.Mode, ValidModes...); err != nil {
		return err
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"z clearance", o.ZClearance},
		{"plunge feedrate", o.PlungeFeedrate},
		{"milling feedrate", o.MillingFeedrate},
		{"resolution", o.Resolution},
	}
	for _, f := range positive {
		if err := ierrors.ValidatePositive(f.name, f.v); err != nil {
			return err
		}
	}
	finite := []struct {
		name string
		v    float64
	}{
		{"z cutting height", o.ZCuttingHeight},
		{"absolute x start", o.AbsoluteXStart},
		{"absolute y start", o.AbsoluteYStart},
		{"origin x", o.OriginX},
		{"origin y", o.OriginY},
		{"start x", o.StartX},
		{"start y", o.StartY},
		{"tolerance", o.Tolerance},
	}
	for _, f := range finite {
		if err := ierrors.ValidateFinite(f.name, f.v); err != nil {
			return err
		}
	}
	if o.Tolerance < 0 {
		return ierrors.New(ierrors.ErrCodeInvalidConfig, "tolerance must be >= 0, got %g", o.Tolerance)
	}
	return nil
}

// EffectiveTolerance returns Tolerance, or half a pixel when it is zero.
func (o *Options) EffectiveTolerance() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return optimize.DefaultTolerance(o.Resolution)
}

// Transform returns the pixel-to-model transform for a raster of height h.
func (o *Options) Transform(h int) geom.Transform {
	return geom.Transform{
		OriginX:    o.OriginX,
		OriginY:    o.OriginY,
		Resolution: o.Resolution,
		Height:     h,
	}
}

// Start returns the model-space start position.
func (o *Options) Start() geom.Point {
	return geom.Pt(o.StartX, o.StartY)
}

// Settings returns the serializer settings.
func (o *Options) Settings() gcode.Settings {
	return gcode.Settings{
		Absolute:        o.Absolute,
		Metric:          o.Metric,
		XOffset:         o.AbsoluteXStart,
		YOffset:         o.AbsoluteYStart,
		ZClearance:      o.ZClearance,
		ZCuttingHeight:  o.ZCuttingHeight,
		PlungeFeedrate:  o.PlungeFeedrate,
		MillingFeedrate: o.MillingFeedrate,
		Header: []string{
			fmt.Sprintf("isomill %s", buildinfo.Version),
			fmt.Sprintf("mode: %s, resolution: %g ppi", o.Mode, o.Resolution),
		},
	}
}

// ProgramKeyOpts returns cache key options for the emitted program.
func (o *Options) ProgramKeyOpts() cache.ProgramKeyOpts {
	return cache.ProgramKeyOpts{
		Mode:            o.Mode,
		Absolute:        o.Absolute,
		Metric:          o.Metric,
		ZClearance:      o.ZClearance,
		ZCuttingHeight:  o.ZCuttingHeight,
		AbsoluteXStart:  o.AbsoluteXStart,
		AbsoluteYStart:  o.AbsoluteYStart,
		PlungeFeedrate:  o.PlungeFeedrate,
		MillingFeedrate: o.MillingFeedrate,
		Resolution:      o.Resolution,
		OriginX:         o.OriginX,
		OriginY:         o.OriginY,
		StartX:          o.StartX,
		StartY:          o.StartY,
		Tolerance:       o.EffectiveTolerance(),
	}
}
