// Package io provides JSON import and export for recorded tool strokes.
//
// # JSON Format
//
// A stroke document lists every recorded move in model space:
//
//	{
//	  "units": "in",
//	  "base_z": 0,
//	  "strokes": [
//	    {"kind": "rapid", "start": [0, 0, 0.1], "end": [0.05, 0.15, 0.1]},
//	    {"kind": "plunge", "start": [0.05, 0.15, 0.1], "end": [0.05, 0.15, 0]},
//	    {"kind": "cut", "start": [0.05, 0.15, 0], "end": [0.05, 0.05, 0]}
//	  ]
//	}
//
// Kinds are "rapid", "plunge", "cut" and "retract". Coordinates are always
// model units (inches) whatever unit the program was emitted in; "units"
// records the program's output unit for display. Z is the recorded stroke
// height, base_z plus the height above the cutting surface.
//
// Use [WriteStrokes] and [ReadStrokes] with any stream, or [ExportStrokes] and
// [ImportStrokes] for files. Documents written by WriteStrokes read back to an
// identical stroke list.
package io
