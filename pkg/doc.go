// Package pkg provides the libraries behind isomill, which turns a
// classified PCB raster into isolation milling G-code.
//
// # Architecture
//
// The pipeline runs four stages, each in its own package:
//
//	raster.Raster              classified pixel grid
//	     ↓  boundary.Build
//	boundary.Graph             corners on color boundaries, 4-connected
//	     ↓  contour.Extract
//	[]contour.Contour          closed loops and open chains
//	     ↓  optimize.Simplify
//	[]optimize.Path            polygons in model space
//	     ↓  gcode.Serialize
//	gcode.Program              moves, strokes, G-code text
//
// [pipeline.Runner] chains the stages with caching ([cache]), progress
// reporting ([progress]) and observability hooks ([observability]).
// Outputs beyond G-code live in [io] (stroke JSON) and [render] (PNG
// preview, boundary graph SVG). [server] exposes the pipeline over HTTP.
//
// # Quick Start
//
//	img, err := raster.Load("board.png")
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Execute(ctx, img, pipeline.DefaultOptions())
//	os.WriteFile("board.nc", res.GCode, 0644)
package pkg
