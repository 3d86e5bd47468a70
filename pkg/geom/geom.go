// Package geom provides the small set of planar value types shared by the
// toolpath pipeline: model-space points, a 3-D point for tool positions, and
// the pixel-to-model coordinate transform.
//
// All values are float64 and copied by value. Model space uses inches with Y
// increasing upward; pixel space uses integer grid corners with row 0 at the
// top of the raster.
package geom

import "math"

// Point is a position in model space.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

// Point3 is a tool position: a model-space point plus a height.
type Point3 struct {
	X, Y, Z float64
}

// XY drops the height.
func (p Point3) XY() Point { return Point{p.X, p.Y} }

// SegmentDistance returns the distance from p to the closed segment a-b.
// A degenerate segment (a == b) measures the distance to a.
func SegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	switch {
	case t <= 0:
		return p.Dist(a)
	case t >= 1:
		return p.Dist(b)
	}
	return p.Dist(Point{a.X + t*dx, a.Y + t*dy})
}

// PolylineLength returns the length of the closed polygon through pts.
func PolylineLength(pts []Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	var total float64
	for i := range pts {
		total += pts[i].Dist(pts[(i+1)%len(pts)])
	}
	return total
}
