// Package contour recovers polylines from a boundary graph.
//
// [Extract] drains the graph: it repeatedly seeds a walk at the first node in
// graph order that still has untraced links and follows untraced links,
// preferring unvisited neighbors and then north, south, east and west, until
// the walk returns to its seed or runs out of untraced links. Every node is
// consumed (entered while unvisited) exactly once and every boundary edge is
// traced by exactly one contour. A walk that returns to its seed yields a
// closed loop; a walk that dead-ends (a region touching the raster border)
// is extended backward from its seed so the whole chain is returned as one
// open contour.
//
// A junction node (three or four links, where regions of three colors meet
// or two regions touch diagonally) is consumed by the first walk that
// reaches it. Later walks that arrive next to it step across the remaining
// links onto it, so junction nodes can appear in more than one contour.
package contour

import (
	"context"

	"github.com/matzehuels/isomill/pkg/boundary"
	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/progress"
)

// Contour is an ordered run of grid corners. Consecutive points are adjacent
// corners; when Closed is true the last point is also adjacent to the first.
type Contour struct {
	Points []boundary.Key
	Closed bool
}

// Segments returns the number of unit edges the contour traces.
func (c Contour) Segments() int {
	if len(c.Points) < 2 {
		return 0
	}
	if c.Closed {
		return len(c.Points)
	}
	return len(c.Points) - 1
}

// Edges returns the traced edges in the graph's canonical orientation.
func (c Contour) Edges() []boundary.Edge {
	edges := make([]boundary.Edge, 0, c.Segments())
	for i := 0; i < c.Segments(); i++ {
		edges = append(edges, canonical(c.Points[i], c.Points[(i+1)%len(c.Points)]))
	}
	return edges
}

// Model transforms the contour's corners into model space.
func (c Contour) Model(tf geom.Transform) []geom.Point {
	pts := make([]geom.Point, len(c.Points))
	for i, k := range c.Points {
		pts[i] = tf.ToModel(k.X, k.Y)
	}
	return pts
}

func canonical(a, b boundary.Key) boundary.Edge {
	if b.Y < a.Y || b.X < a.X {
		a, b = b, a
	}
	return boundary.Edge{A: a, B: b}
}

// Stats summarizes a set of contours.
type Stats struct {
	Contours int
	Closed   int
	Points   int
	Segments int // total traced unit edges, equal to the pixel length
}

// Summarize computes Stats for cs.
func Summarize(cs []Contour) Stats {
	s := Stats{Contours: len(cs)}
	for _, c := range cs {
		if c.Closed {
			s.Closed++
		}
		s.Points += len(c.Points)
		s.Segments += c.Segments()
	}
	return s
}

// Extract drains g into contours. Progress reports the number of nodes
// consumed. Cancellation is checked between contours; on cancellation the
// contours extracted so far are returned with ctx.Err().
func Extract(ctx context.Context, g *boundary.Graph, rep progress.Reporter) ([]Contour, error) {
	keys := g.Keys()
	t := newTracer(g)

	tr := progress.NewTracker(rep, progress.StageExtract, len(keys))
	var out []Contour
	for next := 0; next < len(keys); {
		// A node never regains untraced links, so the scan only moves forward.
		if t.open[keys[next]] == 0 {
			next++
			continue
		}
		out = append(out, t.trace(keys[next]))
		tr.Set(t.consumed)

		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}

// noStop is never a graph corner; walks given it run until they dead-end.
var noStop = boundary.Key{X: -1, Y: -1}

// tracer holds the drain state: untraced link bits per node and the set of
// consumed nodes.
type tracer struct {
	g        *boundary.Graph
	open     map[boundary.Key]uint8
	visited  map[boundary.Key]struct{}
	consumed int
}

func newTracer(g *boundary.Graph) *tracer {
	t := &tracer{
		g:       g,
		open:    make(map[boundary.Key]uint8, g.Len()),
		visited: make(map[boundary.Key]struct{}, g.Len()),
	}
	for _, k := range g.Keys() {
		n := g.Lookup(k)
		var bits uint8
		for _, d := range boundary.Dirs {
			if n.Has(d) {
				bits |= 1 << d
			}
		}
		t.open[k] = bits
	}
	return t
}

// trace extracts the contour through seed.
func (t *tracer) trace(seed boundary.Key) Contour {
	t.consume(seed)
	forward := t.walk(seed, seed)
	if n := len(forward); n > 0 && forward[n-1] == seed {
		pts := append([]boundary.Key{seed}, forward[:n-1]...)
		return Contour{Points: pts, Closed: true}
	}

	// The backward walk may pass through the seed again at a junction.
	backward := t.walk(seed, noStop)
	if len(backward) == 0 {
		return Contour{Points: append([]boundary.Key{seed}, forward...)}
	}

	// Open chain seeded mid-way: backward half reversed, then seed, then forward.
	pts := make([]boundary.Key, 0, len(backward)+1+len(forward))
	for i := len(backward) - 1; i >= 0; i-- {
		pts = append(pts, backward[i])
	}
	pts = append(pts, seed)
	pts = append(pts, forward...)
	return Contour{Points: pts}
}

// walk follows untraced links from start, marking each link traced and
// consuming each unvisited node it enters. It stops on reaching stop or when
// the current node has no untraced link left, and returns the entered nodes
// in order. start itself is not included.
func (t *tracer) walk(start, stop boundary.Key) []boundary.Key {
	var path []boundary.Key
	cur := start
	for {
		d, ok := t.next(cur)
		if !ok {
			return path
		}
		to := cur.Step(d)
		t.open[cur] &^= 1 << d
		t.open[to] &^= 1 << d.Opposite()
		path = append(path, to)
		if to == stop {
			return path
		}
		t.consume(to)
		cur = to
	}
}

// next picks the untraced link to follow from k: the first one in
// preference order leading to an unvisited node, otherwise the first one.
func (t *tracer) next(k boundary.Key) (boundary.Dir, bool) {
	open := t.open[k]
	if open == 0 {
		return 0, false
	}
	fallback, found := boundary.North, false
	for _, d := range boundary.Dirs {
		if open&(1<<d) == 0 {
			continue
		}
		if _, seen := t.visited[k.Step(d)]; !seen {
			return d, true
		}
		if !found {
			fallback, found = d, true
		}
	}
	return fallback, found
}

func (t *tracer) consume(k boundary.Key) {
	if _, seen := t.visited[k]; seen {
		return
	}
	t.visited[k] = struct{}{}
	t.consumed++
}
