package gcode

import (
	"context"
	"math"

	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/optimize"
	"github.com/matzehuels/isomill/pkg/progress"
)

// serializer carries emission state for one program. Positions are model
// coordinates with Z as height above the cutting surface; nothing is rounded.
type serializer struct {
	s     Settings
	scale float64
	pos   geom.Point3
	feed  float64
	prog  *Program
}

// Serialize orders paths greedily from start and emits the program. Paths
// must have at least one vertex. On cancellation the program built so far is
// returned with ctx.Err(); it always ends at clearance height.
func Serialize(ctx context.Context, paths []optimize.Path, start geom.Point, s Settings, rep progress.Reporter) (*Program, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	z := &serializer{
		s:     s,
		scale: s.scale(),
		pos:   geom.Point3{X: start.X, Y: start.Y, Z: s.ZClearance},
		prog: &Program{
			Settings: s,
			Start:    start,
			Moves:    make([]Move, 0, 4*len(paths)),
			Order:    make([]int, 0, len(paths)),
		},
	}
	defer func() { z.prog.End = z.pos }()

	tr := progress.NewTracker(rep, progress.StageSerialize, len(paths))
	visited := make([]bool, len(paths))
	for n := range paths {
		i := z.nearest(paths, visited)
		visited[i] = true
		z.prog.Order = append(z.prog.Order, i)
		z.path(paths[i])
		tr.Set(n + 1)
		if err := ctx.Err(); err != nil {
			return z.prog, err
		}
	}
	return z.prog, nil
}

// nearest returns the unvisited path whose start is closest to the cursor.
// Ties keep the lowest index.
func (z *serializer) nearest(paths []optimize.Path, visited []bool) int {
	best, bestDist := -1, math.Inf(1)
	at := z.pos.XY()
	for i, p := range paths {
		if visited[i] {
			continue
		}
		if d := at.Dist(p.Start()); d < bestDist || best < 0 {
			best, bestDist = i, d
		}
	}
	return best
}

func (z *serializer) path(p optimize.Path) {
	z.rapid(p.Start())
	z.plunge()
	for _, pt := range p.Points[1:] {
		z.cut(pt)
	}
	if p.Closed {
		z.cut(p.Start())
	}
	z.retract()
}

func (z *serializer) rapid(to geom.Point) {
	z.moveXY(Rapid, to, 0)
}

func (z *serializer) cut(to geom.Point) {
	z.moveXY(Cut, to, z.s.MillingFeedrate)
}

func (z *serializer) plunge() {
	z.moveZ(Plunge, 0, z.s.PlungeFeedrate)
}

func (z *serializer) retract() {
	z.moveZ(Retract, z.s.ZClearance, 0)
}

func (z *serializer) moveXY(kind MoveKind, to geom.Point, feed float64) {
	next := geom.Point3{X: to.X, Y: to.Y, Z: z.pos.Z}
	m := Move{Kind: kind, Feed: feed}
	if z.s.Absolute {
		m.X = (z.s.XOffset + next.X) * z.scale
		m.Y = (z.s.YOffset + next.Y) * z.scale
	} else {
		m.X = (next.X - z.pos.X) * z.scale
		m.Y = (next.Y - z.pos.Y) * z.scale
	}
	z.emit(m, next)
}

func (z *serializer) moveZ(kind MoveKind, height, feed float64) {
	next := geom.Point3{X: z.pos.X, Y: z.pos.Y, Z: height}
	m := Move{Kind: kind, Feed: feed}
	if z.s.Absolute {
		m.Z = (z.s.ZCuttingHeight + height) * z.scale
	} else {
		m.Z = (height - z.pos.Z) * z.scale
	}
	z.emit(m, next)
}

func (z *serializer) emit(m Move, next geom.Point3) {
	if m.Feed > 0 && m.Feed != z.feed {
		m.SetsFeed = true
		z.feed = m.Feed
	}
	z.prog.Moves = append(z.prog.Moves, m)
	z.prog.Strokes = append(z.prog.Strokes, Stroke{
		Kind:  m.Kind,
		Start: stroke(z.pos),
		End:   stroke(next),
	})
	z.pos = next
}

func stroke(p geom.Point3) geom.Point3 {
	return geom.Point3{X: p.X, Y: p.Y, Z: StrokeBaseZ + p.Z}
}
