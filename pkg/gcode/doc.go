// Package gcode orders simplified toolpaths and serializes them as a G-code
// program for isolation milling.
//
// # Ordering
//
// [Serialize] visits every path exactly once using greedy nearest-neighbor
// tour construction: starting from the configured start position it
// repeatedly picks the remaining path whose start vertex is closest to the
// tool, breaking ties in input order, and continues from where that path
// ends. This is not an optimal tour and is kept that way so output stays
// stable across versions.
//
// # Motion
//
// Each path becomes four kinds of [Move]: a rapid to its start vertex at
// clearance height, a plunge to cutting height at the plunge feedrate, cuts
// along its vertices at the milling feedrate (closed paths finish back at the
// start vertex) and a retract to clearance height.
//
// All positions are tracked at full precision in model units (inches).
// Emitted values are derived from that cursor and multiplied by 25.4 as the
// very last step in metric mode, so metric output is exactly imperial output
// times 25.4.
//
//   - Absolute mode emits X = XOffset + x, Y = YOffset + y, and Z =
//     ZCuttingHeight while cutting or ZCuttingHeight + ZClearance while
//     traveling.
//   - Relative mode emits the difference from the previous cursor position.
//     The cursor starts at the start position at clearance height, so plunges
//     emit Z = -ZClearance and retracts Z = +ZClearance.
//
// Every move is also recorded as a [Stroke] for visualizers.
//
// # Text
//
// [Program.WriteTo] renders the program. The preamble selects units (G20 or
// G21), distance mode (G90 or G91) and the XY plane; in absolute mode it also
// raises the tool to clearance height. The feed word is only written when the
// feedrate changes. Write errors are returned unchanged.
package gcode
