package gcode_test

import (
	"context"
	"fmt"
	"os"

	"github.com/matzehuels/isomill/pkg/gcode"
	"github.com/matzehuels/isomill/pkg/geom"
	"github.com/matzehuels/isomill/pkg/optimize"
)

func ExampleSerialize() {
	triangle := optimize.Path{
		Points: []geom.Point{geom.Pt(1, 1), geom.Pt(1, 2), geom.Pt(2, 2)},
		Closed: true,
	}
	settings := gcode.Settings{ZClearance: 0.1, PlungeFeedrate: 2, MillingFeedrate: 2}

	prog, err := gcode.Serialize(context.Background(), []optimize.Path{triangle}, geom.Point{}, settings, nil)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	prog.WriteTo(os.Stdout)
	// Output:
	// (units: inches, coordinates: relative)
	// G20
	// G91
	// G17
	// G0 X1.0000 Y1.0000
	// G1 Z-0.1000 F2
	// G1 X0.0000 Y1.0000
	// G1 X1.0000 Y0.0000
	// G1 X-1.0000 Y-1.0000
	// G0 Z0.1000
	// M5
	// M2
}

func ExampleProgram_Stats() {
	square := optimize.Path{
		Points: []geom.Point{geom.Pt(0, 0), geom.Pt(0, 1), geom.Pt(1, 1), geom.Pt(1, 0)},
		Closed: true,
	}
	settings := gcode.Settings{ZClearance: 0.1, PlungeFeedrate: 2, MillingFeedrate: 2}
	prog, _ := gcode.Serialize(context.Background(), []optimize.Path{square}, geom.Pt(3, 4), settings, nil)

	st := prog.Stats()
	fmt.Println("Paths:", st.Paths)
	fmt.Println("Cut:", st.CutLength)
	fmt.Println("Travel:", st.TravelLength)
	fmt.Println("Plunges:", prog.Count(gcode.Plunge))
	// Output:
	// Paths: 1
	// Cut: 4
	// Travel: 5
	// Plunges: 1
}
