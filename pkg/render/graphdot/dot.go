// Package graphdot draws boundary graphs with Graphviz for debugging.
//
// Nodes are pinned to their grid corners with neato so the drawing keeps the
// raster's geometry. When contours are supplied, each contour's edges get
// their own color, which makes junction hand-offs and open chains easy to spot.
package graphdot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/isomill/pkg/boundary"
	"github.com/matzehuels/isomill/pkg/contour"
)

// DefaultSpacing is the distance between grid corners in points.
const DefaultSpacing = 12.0

// Options configures DOT output.
type Options struct {
	// Spacing between adjacent corners in points.
	Spacing float64

	// Contours colors edges by the contour that traced them. Edges no
	// contour covers are drawn red.
	Contours []contour.Contour
}

var palette = []string{"#1f77b4", "#2ca02c", "#9467bd", "#8c564b", "#e377c2", "#17becf", "#bcbd22", "#7f7f7f"}

const untraced = "#d62728"

// ToDOT converts a boundary graph to Graphviz DOT.
func ToDOT(g *boundary.Graph, opts Options) string {
	spacing := opts.Spacing
	if spacing <= 0 {
		spacing = DefaultSpacing
	}

	var colors map[boundary.Edge]string
	if opts.Contours != nil {
		colors = make(map[boundary.Edge]string)
		for i, c := range opts.Contours {
			for _, e := range c.Edges() {
				colors[e] = palette[i%len(palette)]
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  splines=false;\n")
	buf.WriteString("  bgcolor=\"white\";\n")
	buf.WriteString("  node [shape=point, width=0.06, color=\"#333333\"];\n")
	buf.WriteString("  edge [penwidth=2];\n")
	buf.WriteString("\n")

	for _, k := range g.Keys() {
		// Graphviz Y grows upward; raster rows grow downward.
		fmt.Fprintf(&buf, "  %q [pos=\"%g,%g!\"];\n", nodeID(k), float64(k.X)*spacing/72, -float64(k.Y)*spacing/72)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if colors == nil {
			fmt.Fprintf(&buf, "  %q -- %q;\n", nodeID(e.A), nodeID(e.B))
			continue
		}
		color, ok := colors[e]
		if !ok {
			color = untraced
		}
		fmt.Fprintf(&buf, "  %q -- %q [color=%q];\n", nodeID(e.A), nodeID(e.B), color)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(k boundary.Key) string {
	return strconv.Itoa(k.X) + "," + strconv.Itoa(k.Y)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with a
// unitless one so browsers scale the drawing.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
