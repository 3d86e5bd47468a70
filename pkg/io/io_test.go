package io

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/isomill/pkg/gcode"
	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/optimize"
)

func sampleStrokes(t *testing.T) []gcode.Stroke {
	t.Helper()
	paths := []optimize.Path{
		{Points: []geom.Point{geom.Pt(0.05, 0.15), geom.Pt(0.05, 0.05), geom.Pt(0.15, 0.05)}, Closed: true},
		{Points: []geom.Point{geom.Pt(1, 1), geom.Pt(1.5, 1)}},
	}
	prog, err := gcode.Serialize(context.Background(), paths, geom.Point{}, gcode.Settings{
		ZClearance: 0.1, PlungeFeedrate: 2, MillingFeedrate: 2,
	}, nil)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	return prog.Strokes
}

func TestStrokesRoundTrip(t *testing.T) {
	want := sampleStrokes(t)
	var buf bytes.Buffer
	if err := WriteStrokes(want, "mm", &buf); err != nil {
		t.Fatalf("WriteStrokes: %v", err)
	}
	got, units, err := ReadStrokes(&buf)
	if err != nil {
		t.Fatalf("ReadStrokes: %v", err)
	}
	if units != "mm" {
		t.Errorf("units = %q, want mm", units)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadStrokes = %+v, want %+v", got, want)
	}
}

func TestExportImportStrokes(t *testing.T) {
	want := sampleStrokes(t)
	path := filepath.Join(t.TempDir(), "strokes.json")
	if err := ExportStrokes(want, "in", path); err != nil {
		t.Fatalf("ExportStrokes: %v", err)
	}
	got, _, err := ImportStrokes(path)
	if err != nil {
		t.Fatalf("ImportStrokes: %v", err)
	}
	if len(got) != len(want) {
		t.Errorf("ImportStrokes returned %d strokes, want %d", len(got), len(want))
	}
}

func TestReadStrokesErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"malformed", `{"strokes": [`, "decode"},
		{"unknown kind", `{"strokes": [{"kind": "drill", "start": [0,0,0], "end": [0,0,0]}]}`, `stroke 0: unknown kind "drill"`},
	}
	for _, tt := range tests {
		_, _, err := ReadStrokes(strings.NewReader(tt.input))
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: ReadStrokes error = %v, want containing %q", tt.name, err, tt.want)
		}
	}
}

func TestImportStrokesMissingFile(t *testing.T) {
	if _, _, err := ImportStrokes(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("ImportStrokes(missing) should fail")
	}
}
