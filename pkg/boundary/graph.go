package boundary

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	// ErrAsymmetricLink is returned by [Graph.Validate] when a node links to a
	// neighbor that does not link back.
	ErrAsymmetricLink = errors.New("asymmetric link")

	// ErrIsolatedNode is returned by [Graph.Validate] for a node without links.
	ErrIsolatedNode = errors.New("node has no links")
)

// Dir is a compass direction on the pixel grid. North is toward row 0.
type Dir uint8

// Directions in link preference order.
const (
	North Dir = iota
	South
	East
	West
)

// Dirs lists the directions in preference order: north, south, east, west.
var Dirs = [4]Dir{North, South, East, West}

var dirNames = [4]string{"north", "south", "east", "west"}

func (d Dir) String() string {
	if int(d) < len(dirNames) {
		return dirNames[d]
	}
	return fmt.Sprintf("Dir(%d)", d)
}

// Opposite returns the reverse direction.
func (d Dir) Opposite() Dir {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	default:
		return East
	}
}

// Key identifies a grid corner.
type Key struct {
	X, Y int
}

// Step returns the adjacent corner in direction d.
func (k Key) Step(d Dir) Key {
	switch d {
	case North:
		return Key{k.X, k.Y - 1}
	case South:
		return Key{k.X, k.Y + 1}
	case East:
		return Key{k.X + 1, k.Y}
	default:
		return Key{k.X - 1, k.Y}
	}
}

func (k Key) String() string { return fmt.Sprintf("(%d,%d)", k.X, k.Y) }

// Node is a boundary corner with up to four links.
type Node struct {
	Key
	links uint8
}

// Has reports whether n links in direction d.
func (n *Node) Has(d Dir) bool { return n.links&(1<<d) != 0 }

// Degree returns the number of links.
func (n *Node) Degree() int { return bits.OnesCount8(n.links) }

// Edge is an undirected unit boundary edge. A is the north or west end.
type Edge struct {
	A, B Key
}

// Graph is the arena of boundary nodes.
// The zero value is not usable; use [NewGraph].
type Graph struct {
	width, height int
	nodes         map[Key]*Node
	order         []Key
}

// NewGraph returns an empty graph for a w×h raster.
func NewGraph(w, h int) *Graph {
	return &Graph{
		width:  w,
		height: h,
		nodes:  make(map[Key]*Node),
	}
}

// Width returns the raster width the graph was built for.
func (g *Graph) Width() int { return g.width }

// Height returns the raster height the graph was built for.
func (g *Graph) Height() int { return g.height }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.order) }

// Lookup returns the node at k, or nil.
func (g *Graph) Lookup(k Key) *Node { return g.nodes[k] }

// Node returns the node at (x, y), or nil.
func (g *Graph) Node(x, y int) *Node { return g.nodes[Key{x, y}] }

// Keys returns the node keys in creation order. The slice is shared; callers
// must not modify it.
func (g *Graph) Keys() []Key { return g.order }

// Neighbor returns the node n links to in direction d, or nil.
func (g *Graph) Neighbor(n *Node, d Dir) *Node {
	if !n.Has(d) {
		return nil
	}
	return g.nodes[n.Step(d)]
}

// Edges returns every boundary edge once, ordered by the creation order of
// its north or west end.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, k := range g.order {
		n := g.nodes[k]
		if n.Has(South) {
			edges = append(edges, Edge{k, k.Step(South)})
		}
		if n.Has(East) {
			edges = append(edges, Edge{k, k.Step(East)})
		}
	}
	return edges
}

// Validate checks that every link is symmetric and every node has a link.
func (g *Graph) Validate() error {
	for _, k := range g.order {
		n := g.nodes[k]
		if n.Degree() == 0 {
			return fmt.Errorf("%w: %v", ErrIsolatedNode, k)
		}
		for _, d := range Dirs {
			if !n.Has(d) {
				continue
			}
			o := g.nodes[k.Step(d)]
			if o == nil || !o.Has(d.Opposite()) {
				return fmt.Errorf("%w: %v %v", ErrAsymmetricLink, k, d)
			}
		}
	}
	return nil
}

// inRange reports whether k is a corner of the raster.
func (g *Graph) inRange(k Key) bool {
	return k.X >= 0 && k.Y >= 0 && k.X <= g.width && k.Y <= g.height
}

// fetch returns the node at k, creating it on first reference.
// Corners outside the raster yield nil.
func (g *Graph) fetch(k Key) *Node {
	if !g.inRange(k) {
		return nil
	}
	if n, ok := g.nodes[k]; ok {
		return n
	}
	n := &Node{Key: k}
	g.nodes[k] = n
	g.order = append(g.order, k)
	return n
}

// connect links the corner at k to its neighbor in direction d, creating
// both nodes as needed. Nothing is created when either end is out of range.
func (g *Graph) connect(k Key, d Dir) {
	if !g.inRange(k) || !g.inRange(k.Step(d)) {
		return
	}
	n := g.fetch(k)
	o := g.fetch(k.Step(d))
	n.links |= 1 << d
	o.links |= 1 << d.Opposite()
}
