package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/isomill/pkg/gcode"
)

type document struct {
	Units   string   `json:"units"`
	BaseZ   float64  `json:"base_z"`
	Strokes []stroke `json:"strokes"`
}

type stroke struct {
	Kind  string     `json:"kind"`
	Start [3]float64 `json:"start"`
	End   [3]float64 `json:"end"`
}

// WriteStrokes encodes strokes as JSON and writes them to w.
// units is recorded verbatim, usually gcode.Settings.Units().
func WriteStrokes(strokes []gcode.Stroke, units string, w io.Writer) error {
	out := document{
		Units:   units,
		BaseZ:   gcode.StrokeBaseZ,
		Strokes: make([]stroke, len(strokes)),
	}
	for i, s := range strokes {
		out.Strokes[i] = stroke{
			Kind:  s.Kind.String(),
			Start: [3]float64{s.Start.X, s.Start.Y, s.Start.Z},
			End:   [3]float64{s.End.X, s.End.Y, s.End.Z},
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportStrokes writes strokes to a JSON file at path.
func ExportStrokes(strokes []gcode.Stroke, units, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteStrokes(strokes, units, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
