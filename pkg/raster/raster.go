// Package raster defines the input side of the toolpath pipeline: a 2-D grid
// of integer color codes produced by an upstream classification of a PCB
// copper layer.
//
// The pipeline only needs three things from its input, captured by [Raster].
// [Grid] is the in-memory implementation; [FromImage], [Decode] and [Load]
// build one from an image (the color code of a pixel is its 24-bit RGB value),
// and [ParseText] builds one from an ASCII picture for fixtures and tests.
package raster

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
)

// ErrEmpty is returned when a raster has no pixels.
var ErrEmpty = errors.New("raster has no pixels")

// Raster is a classified pixel grid. Color must be defined for every
// coordinate inside [0,Width)×[0,Height); callers use [At] for coordinates
// that may fall outside.
type Raster interface {
	Width() int
	Height() int
	Color(x, y int) int
}

// At returns r.Color(x, y), or 0 when (x, y) lies outside the raster.
func At(r Raster, x, y int) int {
	if x < 0 || y < 0 || x >= r.Width() || y >= r.Height() {
		return 0
	}
	return r.Color(x, y)
}

// Grid is a dense row-major Raster.
type Grid struct {
	w, h int
	pix  []int
}

// NewGrid returns a w×h grid filled with color 0.
func NewGrid(w, h int) *Grid {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Grid{w: w, h: h, pix: make([]int, w*h)}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.w }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.h }

// Color returns the code at (x, y), or 0 outside the grid.
func (g *Grid) Color(x, y int) int {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return 0
	}
	return g.pix[y*g.w+x]
}

// Set assigns the code at (x, y). Out-of-range writes are ignored.
func (g *Grid) Set(x, y, c int) {
	if x < 0 || y < 0 || x >= g.w || y >= g.h {
		return
	}
	g.pix[y*g.w+x] = c
}

// FillRect sets every pixel of the w×h rectangle at (x, y) to c.
func (g *Grid) FillRect(x, y, w, h, c int) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			g.Set(xx, yy, c)
		}
	}
}

// Hash returns a content hash of r covering its dimensions and every code.
// Equal rasters hash equally regardless of implementation.
func Hash(r Raster) string {
	h := sha256.New()
	var buf [8]byte
	binary.LittleEndian.PutUint32(buf[:4], uint32(r.Width()))
	binary.LittleEndian.PutUint32(buf[4:], uint32(r.Height()))
	h.Write(buf[:])
	for y := 0; y < r.Height(); y++ {
		for x := 0; x < r.Width(); x++ {
			binary.LittleEndian.PutUint64(buf[:], uint64(r.Color(x, y)))
			h.Write(buf[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate returns ErrEmpty for rasters without pixels.
func Validate(r Raster) error {
	if r == nil || r.Width() <= 0 || r.Height() <= 0 {
		return ErrEmpty
	}
	return nil
}

var _ Raster = (*Grid)(nil)
