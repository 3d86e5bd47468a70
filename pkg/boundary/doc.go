// Package boundary builds the graph of color-boundary crossings of a raster.
//
// # Model
//
// Nodes sit on pixel-grid corners: the corner (x, y) is the top-left corner
// of pixel (x, y), so a W×H raster has corners in [0,W]×[0,H]. Two corners
// are linked when the unit edge between them separates two pixels of
// different color. Every node therefore has one to four links, one per
// compass direction.
//
// The graph is an arena keyed by [Key]. A link is a bit on the node; the
// neighbor it points at is always the adjacent corner in that direction and
// is looked up in the arena, so nodes never own each other and the arena is
// dropped as a whole once the contours have been extracted.
//
// # Building
//
// [Build] scans pixels row-major. A pixel whose west neighbor has a different
// color contributes the vertical edge (x,y)-(x,y+1); a pixel whose north
// neighbor differs contributes the horizontal edge (x,y)-(x+1,y). The raster
// border itself is never a boundary: pixels in column 0 have no west
// neighbor and pixels in row 0 no north neighbor, so a region touching the
// border yields an open chain rather than a loop. Nodes are created the first
// time an edge touches them and iterate in creation order, which makes every
// later stage deterministic.
//
//	g, err := boundary.Build(ctx, grid, nil)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(g.Len(), "nodes", len(g.Edges()), "edges")
package boundary
