// Package render groups the visual outputs of the toolpath pipeline.
//
// # Toolpath Preview
//
// The [preview] subpackage draws the tool strokes of a program to a PNG:
// cuts as solid lines, rapid moves dashed, plunge points as dots and the
// model origin as a small cross. Drawing uses github.com/gogpu/gg.
//
//	f, _ := os.Create("board.png")
//	err := preview.WritePNG(f, res.Strokes, preview.Options{ShowTravel: true})
//
// # Boundary Graph
//
// The [graphdot] subpackage writes the boundary graph as Graphviz DOT with
// every corner pinned to its grid position, and renders it to SVG with
// go-graphviz. Edges are colored by the contour that traces them, which
// shows how walks hand off at junctions.
//
//	dot := graphdot.ToDOT(g, graphdot.Options{Contours: contours})
//	svg, err := graphdot.RenderSVG(ctx, dot)
//
// [preview]: github.com/matzehuels/isomill/pkg/render/preview
// [graphdot]: github.com/matzehuels/isomill/pkg/render/graphdot
package render
