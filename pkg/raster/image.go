package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder

	ierrors "github.com/matzehuels/isomill/pkg/errors"
)

// FromImage classifies img into a Grid. The color code of each pixel is its
// 24-bit RGB value (0xRRGGBB); alpha is ignored.
func FromImage(img image.Image) *Grid {
	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy())
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			r, gg, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			g.pix[y*g.w+x] = int(r>>8)<<16 | int(gg>>8)<<8 | int(bb>>8)
		}
	}
	return g
}

// DefaultMaxPixels bounds the image area accepted by [Decode] and [Load].
const DefaultMaxPixels = 40_000_000

// ErrTooLarge is returned when an image header declares more pixels than
// the decoder accepts.
var ErrTooLarge = errors.New("image too large")

// Decode reads a PNG, BMP, TIFF, GIF or JPEG image from rd and classifies it.
// Images larger than DefaultMaxPixels are rejected. Undecodable input fails
// with the INVALID_RASTER code.
func Decode(rd io.Reader) (*Grid, string, error) {
	return DecodeLimit(rd, DefaultMaxPixels)
}

// DecodeLimit is Decode with a pixel limit; maxPixels <= 0 means
// DefaultMaxPixels. The header is checked before any pixel data is decoded.
func DecodeLimit(rd io.Reader, maxPixels int64) (*Grid, string, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	// Replay the header bytes consumed by DecodeConfig into the full decode.
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(rd, &head))
	if err != nil {
		return nil, "", ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "decode image")
	}
	if n := int64(cfg.Width) * int64(cfg.Height); n > maxPixels {
		err := fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
		return nil, format, ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "decode %s", format)
	}

	img, format, err := image.Decode(io.MultiReader(&head, rd))
	if err != nil {
		return nil, "", ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "decode image")
	}
	g := FromImage(img)
	if err := Validate(g); err != nil {
		return nil, format, ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "decode %s", format)
	}
	return g, format, nil
}

// Load decodes the image at path.
func Load(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, _, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
