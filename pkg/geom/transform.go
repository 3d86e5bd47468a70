package geom

// Transform maps raster grid corners into model space.
//
//	modelX = OriginX + x/Resolution
//	modelY = OriginY + (Height - y)/Resolution
//
// Raster row 0 is the top edge, so Y is flipped.
type Transform struct {
	OriginX    float64 // model X of the raster's left edge
	OriginY    float64 // model Y of the raster's bottom edge
	Resolution float64 // pixels per model unit
	Height     int     // raster height in pixels
}

// ToModel converts a grid corner to model space.
func (t Transform) ToModel(x, y int) Point {
	return Point{
		X: t.OriginX + float64(x)/t.Resolution,
		Y: t.OriginY + float64(t.Height-y)/t.Resolution,
	}
}

// ToPixel is the inverse of ToModel. The result is not rounded.
func (t Transform) ToPixel(p Point) (x, y float64) {
	x = (p.X - t.OriginX) * t.Resolution
	y = float64(t.Height) - (p.Y-t.OriginY)*t.Resolution
	return x, y
}
