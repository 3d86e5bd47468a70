// Package optimize reduces traced contours to the vertices a cutter needs.
//
// [Simplify] is a single greedy pass, not Douglas-Peucker: it holds an anchor
// vertex and drops each following vertex while it, and every vertex already
// dropped since the anchor, stays within a tolerance of the segment from the
// anchor to the vertex after it. A vertex that fails becomes the new anchor.
// On a closed loop the final test segment wraps around to the start vertex,
// which is always kept. Output order is input order and surviving vertices
// are never moved.
//
// The usual tolerance is half a pixel in model units, 0.5/resolution. At that
// tolerance a unit-step pixel contour only loses vertices lying on straight
// runs, so a rectangle comes out as its four corners.
package optimize

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isomill/pkg/contour"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/progress"
)

// ErrDegenerate is returned when simplification leaves too few vertices to
// describe a cut: fewer than three for a closed path, two for an open one.
var ErrDegenerate = errors.New("degenerate path")

// Path is a simplified contour in model space.
type Path struct {
	Points []geom.Point
	Closed bool
}

// Start returns the first vertex.
func (p Path) Start() geom.Point { return p.Points[0] }

// End returns where a cutter following the path stops: the start vertex for
// closed paths, the last vertex otherwise.
func (p Path) End() geom.Point {
	if p.Closed {
		return p.Points[0]
	}
	return p.Points[len(p.Points)-1]
}

// Length returns the cut length of the path.
func (p Path) Length() float64 {
	if p.Closed {
		return geom.PolylineLength(p.Points)
	}
	var total float64
	for i := 1; i < len(p.Points); i++ {
		total += p.Points[i-1].Dist(p.Points[i])
	}
	return total
}

// DefaultTolerance returns half a pixel at the given resolution.
func DefaultTolerance(resolution float64) float64 {
	return 0.5 / resolution
}

func minVertices(closed bool) int {
	if closed {
		return 3
	}
	return 2
}

// Simplify reduces pts within tolerance eps.
func Simplify(pts []geom.Point, closed bool, eps float64) (Path, error) {
	if !(eps > 0) {
		return Path{}, ierrors.New(ierrors.ErrCodeInvalidConfig, "tolerance must be > 0, got %g", eps)
	}
	n := len(pts)
	if n < minVertices(closed) {
		return Path{}, ierrors.Wrap(ierrors.ErrCodeDegenerateGeometry, ErrDegenerate, "%d input vertices", n)
	}

	kept := []geom.Point{pts[0]}
	anchor := 0
	last := n - 1
	if !closed {
		last = n - 2
	}
	for i := 1; i <= last; i++ {
		next := pts[(i+1)%n]
		if within(pts[anchor+1:i+1], pts[anchor], next, eps) {
			continue
		}
		kept = append(kept, pts[i])
		anchor = i
	}
	if !closed {
		kept = append(kept, pts[n-1])
	}

	if len(kept) < minVertices(closed) {
		return Path{}, ierrors.Wrap(ierrors.ErrCodeDegenerateGeometry, ErrDegenerate, "%d of %d vertices left", len(kept), n)
	}
	return Path{Points: kept, Closed: closed}, nil
}

// within reports whether every point lies within eps of segment a-b.
func within(pts []geom.Point, a, b geom.Point, eps float64) bool {
	for i := len(pts) - 1; i >= 0; i-- {
		if geom.SegmentDistance(pts[i], a, b) > eps {
			return false
		}
	}
	return true
}

// All transforms every contour to model space and simplifies it. Degenerate
// contours are logged at warn level and skipped. Cancellation is checked
// after each contour; on cancellation the paths so far are returned with
// ctx.Err().
func All(ctx context.Context, cs []contour.Contour, tf geom.Transform, eps float64, rep progress.Reporter, logger *log.Logger) ([]Path, error) {
	if logger == nil {
		logger = log.Default()
	}
	tr := progress.NewTracker(rep, progress.StageOptimize, len(cs))
	paths := make([]Path, 0, len(cs))
	for i, c := range cs {
		p, err := Simplify(c.Model(tf), c.Closed, eps)
		switch {
		case errors.Is(err, ErrDegenerate):
			logger.Warn("skipping degenerate contour", "index", i, "points", len(c.Points), "err", err)
		case err != nil:
			return paths, err
		default:
			paths = append(paths, p)
		}
		tr.Set(i + 1)

		if err := ctx.Err(); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// Stats summarizes simplified paths.
type Stats struct {
	Paths    int
	Vertices int
	Length   float64 // total cut length in model units
}

// Summarize computes Stats for paths.
func Summarize(paths []Path) Stats {
	s := Stats{Paths: len(paths)}
	for _, p := range paths {
		s.Vertices += len(p.Points)
		s.Length += p.Length()
	}
	return s
}
