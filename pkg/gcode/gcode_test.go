package gcode

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isomill/pkg/boundary"
	"github.com/matzehuels/isomill/pkg/contour"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/optimize"
	"github.com/matzehuels/isomill/pkg/raster"
)

func defaults() Settings {
	return Settings{
		ZClearance:      0.1,
		PlungeFeedrate:  2,
		MillingFeedrate: 2,
	}
}

func TestSquareRoundTrip(t *testing.T) {
	g := raster.NewGrid(20, 20)
	g.FillRect(0, 0, 20, 20, 1)
	g.FillRect(5, 5, 10, 10, 2)

	ctx := context.Background()
	graph, err := boundary.Build(ctx, g, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	cs, err := contour.Extract(ctx, graph, nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	tf := geom.Transform{Resolution: 100, Height: 20}
	quiet := log.NewWithOptions(io.Discard, log.Options{})
	paths, err := optimize.All(ctx, cs, tf, optimize.DefaultTolerance(100), nil, quiet)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(paths) != 1 || len(paths[0].Points) != 4 {
		t.Fatalf("paths = %+v, want one path with 4 vertices", paths)
	}

	prog, err := Serialize(ctx, paths, geom.Point{}, defaults(), nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := map[MoveKind]int{Rapid: 1, Plunge: 1, Cut: 4, Retract: 1}
	for kind, n := range want {
		if got := prog.Count(kind); got != n {
			t.Errorf("Count(%s) = %d, want %d", kind, got, n)
		}
	}
	if got := prog.Stats().CutLength; math.Abs(got-0.4) > 1e-9 {
		t.Errorf("CutLength = %v, want 0.4", got)
	}
}

func TestWriteToAbsolute(t *testing.T) {
	s := defaults()
	s.Absolute = true
	s.PlungeFeedrate = 1
	s.MillingFeedrate = 3
	paths := []optimize.Path{{Points: []geom.Point{geom.Pt(1, 1), geom.Pt(2, 1)}}}

	prog, err := Serialize(context.Background(), paths, geom.Point{}, s, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := strings.Join([]string{
		"(units: inches, coordinates: absolute)",
		"G20",
		"G90",
		"G17",
		"G0 Z0.1000",
		"G0 X1.0000 Y1.0000",
		"G1 Z0.0000 F1",
		"G1 X2.0000 Y1.0000 F3",
		"G0 Z0.1000",
		"G0 Z0.1000",
		"M5",
		"M2",
		"",
	}, "\n")
	if got := prog.String(); got != want {
		t.Errorf("program =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteToRelativeModalFeed(t *testing.T) {
	s := defaults()
	s.Header = []string{"isomill (voronoi)"}
	paths := []optimize.Path{{Points: []geom.Point{geom.Pt(1, 1), geom.Pt(1, 2), geom.Pt(2, 2)}, Closed: true}}

	prog, err := Serialize(context.Background(), paths, geom.Point{}, s, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	want := strings.Join([]string{
		"(isomill [voronoi])",
		"(units: inches, coordinates: relative)",
		"G20",
		"G91",
		"G17",
		"G0 X1.0000 Y1.0000",
		"G1 Z-0.1000 F2",
		"G1 X0.0000 Y1.0000",
		"G1 X1.0000 Y0.0000",
		"G1 X-1.0000 Y-1.0000",
		"G0 Z0.1000",
		"M5",
		"M2",
		"",
	}, "\n")
	if got := prog.String(); got != want {
		t.Errorf("program =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteToCountsBytes(t *testing.T) {
	paths := []optimize.Path{{Points: []geom.Point{geom.Pt(1, 1), geom.Pt(2, 1)}}}
	prog, err := Serialize(context.Background(), paths, geom.Point{}, defaults(), nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var sb strings.Builder
	n, err := prog.WriteTo(&sb)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(sb.Len()) {
		t.Errorf("WriteTo = %d bytes, wrote %d", n, sb.Len())
	}
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestWriteToPropagatesWriterError(t *testing.T) {
	sentinel := errors.New("disk full")
	prog, err := Serialize(context.Background(), randomPaths(rand.New(rand.NewPCG(1, 2)), 50), geom.Point{}, defaults(), nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if _, err := prog.WriteTo(failingWriter{sentinel}); err != sentinel {
		t.Errorf("WriteTo error = %v, want %v", err, sentinel)
	}
}

func randomPaths(rng *rand.Rand, n int) []optimize.Path {
	paths := make([]optimize.Path, n)
	for i := range paths {
		// A coarse grid makes tied distances likely.
		pts := make([]geom.Point, 2+rng.IntN(4))
		for j := range pts {
			pts[j] = geom.Pt(float64(rng.IntN(8))/4, float64(rng.IntN(8))/4)
		}
		paths[i] = optimize.Path{Points: pts, Closed: rng.IntN(2) == 0}
	}
	return paths
}

func TestGreedyOrderReplay(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for trial := 0; trial < 20; trial++ {
		paths := randomPaths(rng, 1+rng.IntN(30))
		start := geom.Pt(rng.Float64(), rng.Float64())
		prog, err := Serialize(context.Background(), paths, start, defaults(), nil)
		if err != nil {
			t.Fatalf("Serialize: %v", err)
		}
		if len(prog.Order) != len(paths) {
			t.Fatalf("visited %d paths, want %d", len(prog.Order), len(paths))
		}

		visited := make([]bool, len(paths))
		at := start
		for step, i := range prog.Order {
			if visited[i] {
				t.Fatalf("trial %d: path %d visited twice", trial, i)
			}
			d := at.Dist(paths[i].Start())
			for j, p := range paths {
				if visited[j] || j == i {
					continue
				}
				dj := at.Dist(p.Start())
				if dj < d || (dj == d && j < i) {
					t.Fatalf("trial %d step %d: chose %d at %v, but %d is at %v", trial, step, i, d, j, dj)
				}
			}
			visited[i] = true
			at = paths[i].End()
		}
	}
}

func TestRelativeSumsToAbsolute(t *testing.T) {
	paths := randomPaths(rand.New(rand.NewPCG(3, 5)), 25)
	start := geom.Pt(0.3, 0.7)

	rel := defaults()
	rel.ZCuttingHeight = -0.01
	abs := rel
	abs.Absolute = true

	relProg, err := Serialize(context.Background(), paths, start, rel, nil)
	if err != nil {
		t.Fatalf("Serialize(relative): %v", err)
	}
	absProg, err := Serialize(context.Background(), paths, start, abs, nil)
	if err != nil {
		t.Fatalf("Serialize(absolute): %v", err)
	}
	if len(relProg.Moves) != len(absProg.Moves) {
		t.Fatalf("relative has %d moves, absolute %d", len(relProg.Moves), len(absProg.Moves))
	}

	x, y, z := start.X, start.Y, rel.ZCuttingHeight+rel.ZClearance
	for i, m := range relProg.Moves {
		a := absProg.Moves[i]
		if m.HasXY() {
			x += m.X
			y += m.Y
			if math.Abs(x-a.X) > 1e-9 || math.Abs(y-a.Y) > 1e-9 {
				t.Fatalf("move %d: relative sum (%v,%v), absolute (%v,%v)", i, x, y, a.X, a.Y)
			}
			continue
		}
		z += m.Z
		if math.Abs(z-a.Z) > 1e-9 {
			t.Fatalf("move %d: relative Z sum %v, absolute %v", i, z, a.Z)
		}
	}
}

func TestRelativePlungeAndRetract(t *testing.T) {
	paths := randomPaths(rand.New(rand.NewPCG(9, 9)), 10)
	prog, err := Serialize(context.Background(), paths, geom.Point{}, defaults(), nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	for i, m := range prog.Moves {
		switch m.Kind {
		case Plunge:
			if m.Z != -0.1 {
				t.Errorf("move %d: plunge Z = %v, want -0.1", i, m.Z)
			}
		case Retract:
			if m.Z != 0.1 {
				t.Errorf("move %d: retract Z = %v, want 0.1", i, m.Z)
			}
		}
	}
}

func TestMetricScalesExactly(t *testing.T) {
	paths := randomPaths(rand.New(rand.NewPCG(4, 4)), 25)
	for _, absolute := range []bool{false, true} {
		imp := defaults()
		imp.Absolute = absolute
		imp.XOffset, imp.YOffset, imp.ZCuttingHeight = 0.5, -0.25, 0.02
		met := imp
		met.Metric = true

		ip, err := Serialize(context.Background(), paths, geom.Point{}, imp, nil)
		if err != nil {
			t.Fatalf("Serialize(imperial): %v", err)
		}
		mp, err := Serialize(context.Background(), paths, geom.Point{}, met, nil)
		if err != nil {
			t.Fatalf("Serialize(metric): %v", err)
		}
		for i, m := range ip.Moves {
			got := mp.Moves[i]
			if got.X != m.X*MillimetersPerInch || got.Y != m.Y*MillimetersPerInch || got.Z != m.Z*MillimetersPerInch {
				t.Fatalf("absolute=%v move %d: metric %+v, imperial %+v", absolute, i, got, m)
			}
		}
		if !strings.Contains(mp.String(), "\nG21\n") {
			t.Errorf("absolute=%v: metric program missing G21", absolute)
		}
	}
}

func TestStrokesAreContiguous(t *testing.T) {
	paths := randomPaths(rand.New(rand.NewPCG(1, 1)), 15)
	start := geom.Pt(0.5, 0.5)
	s := defaults()
	prog, err := Serialize(context.Background(), paths, start, s, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(prog.Strokes) != len(prog.Moves) {
		t.Fatalf("%d strokes for %d moves", len(prog.Strokes), len(prog.Moves))
	}
	want := geom.Point3{X: start.X, Y: start.Y, Z: StrokeBaseZ + s.ZClearance}
	for i, st := range prog.Strokes {
		if st.Start != want {
			t.Fatalf("stroke %d starts at %v, want %v", i, st.Start, want)
		}
		if st.Kind == Cut && st.Start.Z != StrokeBaseZ {
			t.Errorf("stroke %d: cut at Z %v, want %v", i, st.Start.Z, StrokeBaseZ)
		}
		want = st.End
	}
	if prog.End != (geom.Point3{X: want.X, Y: want.Y, Z: s.ZClearance}) {
		t.Errorf("End = %v, want %v at clearance", prog.End, want)
	}
}

func TestSerializeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	paths := randomPaths(rand.New(rand.NewPCG(2, 2)), 5)
	prog, err := Serialize(ctx, paths, geom.Point{}, defaults(), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Serialize error = %v, want context.Canceled", err)
	}
	if len(prog.Order) != 1 {
		t.Errorf("partial program visited %d paths, want 1", len(prog.Order))
	}
	if last := prog.Moves[len(prog.Moves)-1]; last.Kind != Retract {
		t.Errorf("partial program ends with %s, want retract", last.Kind)
	}
}

func TestSerializeInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Settings)
	}{
		{"zero clearance", func(s *Settings) { s.ZClearance = 0 }},
		{"negative plunge feed", func(s *Settings) { s.PlungeFeedrate = -1 }},
		{"zero milling feed", func(s *Settings) { s.MillingFeedrate = 0 }},
		{"nan offset", func(s *Settings) { s.XOffset = math.NaN() }},
	}
	for _, tt := range tests {
		s := defaults()
		tt.edit(&s)
		_, err := Serialize(context.Background(), nil, geom.Point{}, s, nil)
		if !ierrors.Is(err, ierrors.ErrCodeInvalidConfig) {
			t.Errorf("%s: error = %v, want %s", tt.name, err, ierrors.ErrCodeInvalidConfig)
		}
	}
}

func TestWordNegativeZero(t *testing.T) {
	if got := word('X', -0.00001); got != "X0.0000" {
		t.Errorf("word(X, -0.00001) = %q, want X0.0000", got)
	}
	if got := word('Y', -1.23456); got != "Y-1.2346" {
		t.Errorf("word(Y, -1.23456) = %q, want Y-1.2346", got)
	}
}
