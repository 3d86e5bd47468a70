package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/isomill/pkg/pipeline"
)

// optionFlag binds one pipeline option to a command-line flag. copy moves
// the option from src to dst when the flag was set explicitly.
type optionFlag struct {
	name string
	copy func(dst *pipeline.Options, src pipeline.Options)
}

var optionFlags = []optionFlag{
	{"mode", func(d *pipeline.Options, s pipeline.Options) { d.Mode = s.Mode }},
	{"absolute", func(d *pipeline.Options, s pipeline.Options) { d.Absolute = s.Absolute }},
	{"metric", func(d *pipeline.Options, s pipeline.Options) { d.Metric = s.Metric }},
	{"z-clearance", func(d *pipeline.Options, s pipeline.Options) { d.ZClearance = s.ZClearance }},
	{"z-cutting-height", func(d *pipeline.Options, s pipeline.Options) { d.ZCuttingHeight = s.ZCuttingHeight }},
	{"absolute-x-start", func(d *pipeline.Options, s pipeline.Options) { d.AbsoluteXStart = s.AbsoluteXStart }},
	{"absolute-y-start", func(d *pipeline.Options, s pipeline.Options) { d.AbsoluteYStart = s.AbsoluteYStart }},
	{"plunge-feedrate", func(d *pipeline.Options, s pipeline.Options) { d.PlungeFeedrate = s.PlungeFeedrate }},
	{"milling-feedrate", func(d *pipeline.Options, s pipeline.Options) { d.MillingFeedrate = s.MillingFeedrate }},
	{"resolution", func(d *pipeline.Options, s pipeline.Options) { d.Resolution = s.Resolution }},
	{"origin-x", func(d *pipeline.Options, s pipeline.Options) { d.OriginX = s.OriginX }},
	{"origin-y", func(d *pipeline.Options, s pipeline.Options) { d.OriginY = s.OriginY }},
	{"start-x", func(d *pipeline.Options, s pipeline.Options) { d.StartX = s.StartX }},
	{"start-y", func(d *pipeline.Options, s pipeline.Options) { d.StartY = s.StartY }},
	{"tolerance", func(d *pipeline.Options, s pipeline.Options) { d.Tolerance = s.Tolerance }},
	{"refresh", func(d *pipeline.Options, s pipeline.Options) { d.Refresh = s.Refresh }},
}

// addOptionFlags registers a flag for every pipeline option, with defaults
// shown in help.
func addOptionFlags(cmd *cobra.Command, opts *pipeline.Options) {
	*opts = pipeline.DefaultOptions()

	f := cmd.Flags()
	f.StringVar(&opts.Mode, "mode", opts.Mode, "geometry mode: "+strings.Join(pipeline.ValidModes, ", "))
	f.BoolVar(&opts.Absolute, "absolute", opts.Absolute, "absolute coordinates (G90) instead of relative (G91)")
	f.BoolVar(&opts.Metric, "metric", opts.Metric, "millimeters (G21) instead of inches (G20)")
	f.Float64Var(&opts.ZClearance, "z-clearance", opts.ZClearance, "travel height above the cutting surface")
	f.Float64Var(&opts.ZCuttingHeight, "z-cutting-height", opts.ZCuttingHeight, "machine Z of the cutting surface (absolute mode)")
	f.Float64Var(&opts.AbsoluteXStart, "absolute-x-start", opts.AbsoluteXStart, "machine X offset (absolute mode)")
	f.Float64Var(&opts.AbsoluteYStart, "absolute-y-start", opts.AbsoluteYStart, "machine Y offset (absolute mode)")
	f.Float64Var(&opts.PlungeFeedrate, "plunge-feedrate", opts.PlungeFeedrate, "feed rate for plunges")
	f.Float64Var(&opts.MillingFeedrate, "milling-feedrate", opts.MillingFeedrate, "feed rate for cuts")
	f.Float64Var(&opts.Resolution, "resolution", opts.Resolution, "raster pixels per inch")
	f.Float64Var(&opts.OriginX, "origin-x", opts.OriginX, "model X of the raster's left edge")
	f.Float64Var(&opts.OriginY, "origin-y", opts.OriginY, "model Y of the raster's bottom edge")
	f.Float64Var(&opts.StartX, "start-x", opts.StartX, "tool X before the first path")
	f.Float64Var(&opts.StartY, "start-y", opts.StartY, "tool Y before the first path")
	f.Float64Var(&opts.Tolerance, "tolerance", opts.Tolerance, "simplification tolerance in inches (0: half a pixel)")
	f.BoolVar(&opts.Refresh, "refresh", opts.Refresh, "recompute even when a cached program exists")
}

// resolveOptions loads the job file at path, if any, and overlays every
// option flag the user set explicitly.
func resolveOptions(cmd *cobra.Command, path string, flagOpts pipeline.Options) (pipeline.Options, error) {
	if path == "" {
		return flagOpts, nil
	}
	opts, err := pipeline.LoadOptions(path)
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("load config %s: %w", path, err)
	}
	for _, of := range optionFlags {
		if cmd.Flags().Changed(of.name) {
			of.copy(&opts, flagOpts)
		}
	}
	return opts, nil
}
