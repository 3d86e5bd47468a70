// Package preview draws recorded tool strokes to a PNG image.
//
// Cuts are drawn solid, rapid travel as thin dashed lines and plunges as
// dots. A small cross marks the model origin so the image can be lined up
// with the machine's coordinate system.
package preview

import (
	"errors"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/matzehuels/isomill/pkg/gcode"
	"github.com/matzehuels/isomill/pkg/geom"
)

// OriginTick is the half-length of the origin cross, in model units.
const OriginTick = 0.1

// Defaults for zero Options fields.
const (
	DefaultWidth     = 1024
	DefaultMargin    = 16
	DefaultLineWidth = 1.5
)

// ErrEmpty is returned when there is nothing to draw.
var ErrEmpty = errors.New("no strokes to draw")

// Options configures rendering.
type Options struct {
	Width      int     // image width in pixels; height follows the aspect ratio
	Margin     int     // blank border in pixels
	LineWidth  float64 // cut line width in pixels
	ShowTravel bool    // draw rapid moves
}

func (o *Options) setDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Margin < 0 || 2*o.Margin >= o.Width {
		o.Margin = DefaultMargin
	}
	if o.LineWidth <= 0 {
		o.LineWidth = DefaultLineWidth
	}
}

// Bounds returns the model-space bounding box of strokes and the origin
// cross.
func Bounds(strokes []gcode.Stroke) (lo, hi geom.Point) {
	lo = geom.Pt(-OriginTick, -OriginTick)
	hi = geom.Pt(OriginTick, OriginTick)
	for _, s := range strokes {
		for _, p := range []geom.Point3{s.Start, s.End} {
			lo.X, lo.Y = math.Min(lo.X, p.X), math.Min(lo.Y, p.Y)
			hi.X, hi.Y = math.Max(hi.X, p.X), math.Max(hi.Y, p.Y)
		}
	}
	return lo, hi
}

// canvas maps model space onto image pixels, flipping Y.
type canvas struct {
	dc     *gg.Context
	lo, hi geom.Point
	scale  float64
	margin float64
}

func (c *canvas) xy(p geom.Point) (float64, float64) {
	return c.margin + (p.X-c.lo.X)*c.scale, c.margin + (c.hi.Y-p.Y)*c.scale
}

func (c *canvas) line(a, b geom.Point) error {
	c.dc.MoveTo(c.xy(a))
	c.dc.LineTo(c.xy(b))
	return c.dc.Stroke()
}

// Render draws strokes onto a new context. The caller owns the context and
// must Close it.
func Render(strokes []gcode.Stroke, opts Options) (*gg.Context, error) {
	if len(strokes) == 0 {
		return nil, ErrEmpty
	}
	opts.setDefaults()

	lo, hi := Bounds(strokes)
	inner := float64(opts.Width - 2*opts.Margin)
	scale := inner / math.Max(hi.X-lo.X, hi.Y-lo.Y)
	height := int(math.Round((hi.Y-lo.Y)*scale)) + 2*opts.Margin
	width := int(math.Round((hi.X-lo.X)*scale)) + 2*opts.Margin

	dc := gg.NewContext(width, height)
	dc.ClearWithColor(gg.White)
	c := &canvas{dc: dc, lo: lo, hi: hi, scale: scale, margin: float64(opts.Margin)}

	if opts.ShowTravel {
		dc.SetRGB(0.7, 0.7, 0.7)
		dc.SetLineWidth(1)
		dc.SetDash(4, 4)
		for _, s := range strokes {
			if s.Kind == gcode.Rapid {
				if err := c.line(s.Start.XY(), s.End.XY()); err != nil {
					dc.Close()
					return nil, err
				}
			}
		}
		dc.ClearDash()
	}

	dc.SetRGB(0.1, 0.2, 0.6)
	dc.SetLineWidth(opts.LineWidth)
	for _, s := range strokes {
		if s.Kind != gcode.Cut {
			continue
		}
		if err := c.line(s.Start.XY(), s.End.XY()); err != nil {
			dc.Close()
			return nil, err
		}
	}

	dc.SetRGB(0.8, 0.1, 0.1)
	for _, s := range strokes {
		if s.Kind == gcode.Plunge {
			x, y := c.xy(s.Start.XY())
			dc.DrawCircle(x, y, opts.LineWidth)
			if err := dc.Fill(); err != nil {
				dc.Close()
				return nil, err
			}
		}
	}

	dc.SetRGB(0, 0.6, 0)
	dc.SetLineWidth(1)
	ticks := []geom.Point{geom.Pt(OriginTick, 0), geom.Pt(-OriginTick, 0), geom.Pt(0, OriginTick), geom.Pt(0, -OriginTick)}
	for _, t := range ticks {
		if err := c.line(geom.Point{}, t); err != nil {
			dc.Close()
			return nil, err
		}
	}
	return dc, nil
}

// WritePNG renders strokes and encodes the image as PNG to w.
func WritePNG(w io.Writer, strokes []gcode.Stroke, opts Options) error {
	dc, err := Render(strokes, opts)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}
