package gcode

import (
	"math"

	"github.com/matzehuels/isomill/pkg/geom"
)

// MoveKind classifies a motion record.
type MoveKind uint8

// Motion record kinds.
const (
	Rapid MoveKind = iota
	Plunge
	Cut
	Retract
)

var moveNames = [...]string{"rapid", "plunge", "cut", "retract"}

func (k MoveKind) String() string {
	if int(k) < len(moveNames) {
		return moveNames[k]
	}
	return "unknown"
}

// Move is one emitted motion record. X, Y and Z hold the values written to
// the program: absolute positions or deltas, already in output units.
// Rapids and cuts carry X and Y; plunges and retracts carry Z.
type Move struct {
	Kind MoveKind
	X, Y float64
	Z    float64
	Feed float64 // 0 for rapids and retracts

	// SetsFeed is true when Feed differs from the modal feedrate in effect
	// before this move, so the F word must be written.
	SetsFeed bool
}

// HasXY reports whether the move carries X and Y words.
func (m Move) HasXY() bool { return m.Kind == Rapid || m.Kind == Cut }

// StrokeBaseZ is the model Z of the cutting surface in recorded strokes.
// Strokes at clearance sit ZClearance above it.
const StrokeBaseZ = 0.0

// Stroke is a recorded segment for visualization, in model space.
type Stroke struct {
	Kind  MoveKind
	Start geom.Point3
	End   geom.Point3
}

// Program is a serialized toolpath. It is not modified after Serialize
// returns.
type Program struct {
	Settings Settings
	Moves    []Move
	Strokes  []Stroke

	// Order lists the input index of each path in visiting order.
	Order []int

	// Start is the model-space start position; End is the final cursor.
	Start geom.Point
	End   geom.Point3
}

// Count returns the number of moves of kind k.
func (p *Program) Count(k MoveKind) int {
	n := 0
	for _, m := range p.Moves {
		if m.Kind == k {
			n++
		}
	}
	return n
}

// Stats summarizes a program.
type Stats struct {
	Paths        int
	Moves        int
	CutLength    float64 // model units
	TravelLength float64 // rapid moves, model units
}

// Stats computes move counts and lengths from the recorded strokes.
func (p *Program) Stats() Stats {
	s := Stats{Paths: len(p.Order), Moves: len(p.Moves)}
	for _, st := range p.Strokes {
		d := math.Hypot(st.End.X-st.Start.X, st.End.Y-st.Start.Y)
		switch st.Kind {
		case Cut:
			s.CutLength += d
		case Rapid:
			s.TravelLength += d
		}
	}
	return s
}
