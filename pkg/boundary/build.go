package boundary

import (
	"context"

	"github.com/matzehuels/isomill/pkg/progress"
	"github.com/matzehuels/isomill/pkg/raster"
)

// Build scans r and returns its boundary graph. Progress is reported once per
// row. When ctx is cancelled Build stops after the current row and returns
// the graph built so far together with ctx.Err().
func Build(ctx context.Context, r raster.Raster, rep progress.Reporter) (*Graph, error) {
	w, h := r.Width(), r.Height()
	g := NewGraph(w, h)
	tr := progress.NewTracker(rep, progress.StageBoundary, h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := r.Color(x, y)
			if x > 0 && c != raster.At(r, x-1, y) {
				g.connect(Key{x, y}, South)
			}
			if y > 0 && c != raster.At(r, x, y-1) {
				g.connect(Key{x, y}, East)
			}
		}
		if err := ctx.Err(); err != nil {
			return g, err
		}
		tr.Set(y + 1)
	}
	return g, nil
}
