package gcode

import (
	ierrors "github.com/matzehuels/isomill/pkg/errors"
)

// MillimetersPerInch converts model units to metric output.
const MillimetersPerInch = 25.4

// Settings configures program emission. Lengths are in inches regardless of
// Metric; feedrates are in output units per minute and are emitted as given.
type Settings struct {
	Absolute bool // emit absolute coordinates (G90) instead of deltas (G91)
	Metric   bool // emit millimeters (G21) instead of inches (G20)

	XOffset float64 // absolute X of the model origin
	YOffset float64 // absolute Y of the model origin

	ZClearance     float64 // travel height above the cutting surface, > 0
	ZCuttingHeight float64 // absolute Z of the cutting surface

	PlungeFeedrate  float64 // > 0
	MillingFeedrate float64 // > 0

	// Header lines are written as comments at the top of the program.
	Header []string
}

// Validate rejects non-positive clearance and feedrates.
func (s Settings) Validate() error {
	if err := ierrors.ValidatePositive("z clearance", s.ZClearance); err != nil {
		return err
	}
	if err := ierrors.ValidatePositive("plunge feedrate", s.PlungeFeedrate); err != nil {
		return err
	}
	if err := ierrors.ValidatePositive("milling feedrate", s.MillingFeedrate); err != nil {
		return err
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"x offset", s.XOffset},
		{"y offset", s.YOffset},
		{"z cutting height", s.ZCuttingHeight},
	} {
		if err := ierrors.ValidateFinite(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}

// scale returns the factor applied to every emitted length.
func (s Settings) scale() float64 {
	if s.Metric {
		return MillimetersPerInch
	}
	return 1
}

// Units returns "mm" or "in".
func (s Settings) Units() string {
	if s.Metric {
		return "mm"
	}
	return "in"
}
