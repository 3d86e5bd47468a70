package raster

import (
	"fmt"
	"strings"
)

// ParseText builds a Grid from an ASCII picture. Each line is a row and each
// rune a pixel: '.' and ' ' are color 0, any other rune is its code point.
// Blank leading and trailing lines are dropped; shorter rows are padded
// with 0.
//
//	g, _ := raster.ParseText(`
//	....
//	.##.
//	.##.
//	....`)
func ParseText(s string) (*Grid, error) {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	w := 0
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
		if n := len([]rune(lines[i])); n > w {
			w = n
		}
	}
	if w == 0 {
		return nil, fmt.Errorf("parse text raster: %w", ErrEmpty)
	}
	g := NewGrid(w, len(lines))
	for y, l := range lines {
		for x, r := range []rune(l) {
			if r == '.' || r == ' ' {
				continue
			}
			g.Set(x, y, int(r))
		}
	}
	return g, nil
}

// MustParseText is ParseText for fixtures; it panics on error.
func MustParseText(s string) *Grid {
	g, err := ParseText(s)
	if err != nil {
		panic(err)
	}
	return g
}
