package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/isomill/pkg/gcode"
	"github.com/matzehuels/isomill/pkg/geom"
)

var kindFromString = map[string]gcode.MoveKind{
	"rapid":   gcode.Rapid,
	"plunge":  gcode.Plunge,
	"cut":     gcode.Cut,
	"retract": gcode.Retract,
}

// ReadStrokes decodes a stroke document from r. It returns the strokes and
// the recorded units. An unknown kind is an error naming the stroke index.
// ReadStrokes does not close r.
func ReadStrokes(r io.Reader) ([]gcode.Stroke, string, error) {
	var data document
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, "", fmt.Errorf("decode: %w", err)
	}

	strokes := make([]gcode.Stroke, len(data.Strokes))
	for i, s := range data.Strokes {
		kind, ok := kindFromString[s.Kind]
		if !ok {
			return nil, "", fmt.Errorf("stroke %d: unknown kind %q", i, s.Kind)
		}
		strokes[i] = gcode.Stroke{
			Kind:  kind,
			Start: geom.Point3{X: s.Start[0], Y: s.Start[1], Z: s.Start[2]},
			End:   geom.Point3{X: s.End[0], Y: s.End[1], Z: s.End[2]},
		}
	}
	return strokes, data.Units, nil
}

// ImportStrokes reads a stroke document from the file at path.
func ImportStrokes(path string) ([]gcode.Stroke, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadStrokes(f)
}
