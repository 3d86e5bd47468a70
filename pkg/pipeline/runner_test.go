package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isomill/pkg/cache"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/observability"
	"github.com/matzehuels/isomill/pkg/progress"
	"github.com/matzehuels/isomill/pkg/raster"
)

var quiet = log.NewWithOptions(io.Discard, log.Options{})

// square is a 20x20 raster with a 10x10 island at (5,5).
func square() *raster.Grid {
	g := raster.NewGrid(20, 20)
	g.FillRect(0, 0, 20, 20, 1)
	g.FillRect(5, 5, 10, 10, 2)
	return g
}

type countingCache struct {
	cache.Cache
	mu   sync.Mutex
	sets int
}

func (c *countingCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.Cache.Set(ctx, key, data, ttl)
}

// coarse returns default options at 100 pixels per inch.
func coarse() Options {
	opts := DefaultOptions()
	opts.Resolution = 100
	return opts
}

func TestExecuteSquare(t *testing.T) {
	r := NewRunner(nil, nil, quiet)
	res, err := r.Execute(context.Background(), square(), coarse())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	st := res.Stats
	if st.Nodes != 40 || st.Edges != 40 || st.Contours != 1 || st.Paths != 1 || st.Vertices != 4 || st.Moves != 7 {
		t.Errorf("Stats = %+v, want 40 nodes, 40 edges, 1 contour, 1 path, 4 vertices, 7 moves", st)
	}
	if !bytes.Contains(res.GCode, []byte("\nG20\nG91\nG17\n")) {
		t.Errorf("GCode missing relative imperial preamble:\n%s", res.GCode)
	}
	if res.Program == nil || len(res.Strokes) != len(res.Program.Moves) {
		t.Errorf("Strokes = %d, want one per move", len(res.Strokes))
	}
	if res.CacheHit {
		t.Error("NullCache run reported a cache hit")
	}
}

func TestExecuteUsesCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quiet)
	ctx := context.Background()
	opts := coarse()
	opts.Metric = true

	first, err := r.Execute(ctx, square(), opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	second, err := r.Execute(ctx, square(), opts)
	if err != nil {
		t.Fatalf("Execute (cached): %v", err)
	}
	if !second.CacheHit || second.Program != nil {
		t.Errorf("second run CacheHit = %v, Program = %v; want hit without program", second.CacheHit, second.Program)
	}
	if !bytes.Equal(first.GCode, second.GCode) {
		t.Error("cached GCode differs")
	}
	if !reflect.DeepEqual(first.Strokes, second.Strokes) {
		t.Error("cached strokes differ")
	}
	if first.Stats != second.Stats || first.RasterHash != second.RasterHash {
		t.Errorf("cached stats %+v, want %+v", second.Stats, first.Stats)
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, square(), opts)
	if err != nil {
		t.Fatalf("Execute (refresh): %v", err)
	}
	if third.CacheHit {
		t.Error("Refresh should skip the cache")
	}

	opts.Refresh = false
	opts.Absolute = true
	fourth, err := r.Execute(ctx, square(), opts)
	if err != nil {
		t.Fatalf("Execute (absolute): %v", err)
	}
	if fourth.CacheHit {
		t.Error("changed options should miss the cache")
	}
}

func TestExecuteCancelledIsNotCached(t *testing.T) {
	cc := &countingCache{Cache: cache.NewNullCache()}
	r := NewRunner(cc, nil, quiet)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Execute(ctx, square(), coarse())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute error = %v, want context.Canceled", err)
	}
	if cc.sets != 0 {
		t.Errorf("cancelled run stored %d cache entries", cc.sets)
	}
}

func TestRunCancelledReturnsPartialResult(t *testing.T) {
	tests := []struct {
		stage       progress.Stage
		wantProgram bool
	}{
		{progress.StageExtract, false},
		{progress.StageOptimize, false},
		{progress.StageSerialize, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			opts := coarse()
			opts.Progress = progress.Func(func(s progress.Stage, _, _ int) {
				if s == tt.stage {
					cancel()
				}
			})

			res, err := NewRunner(nil, nil, quiet).Run(ctx, square(), opts)
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("Run error = %v, want context.Canceled", err)
			}
			if res == nil || !res.Partial {
				t.Fatalf("Run result = %+v, want a partial result", res)
			}
			if res.Stats.Nodes != 40 || res.Stats.Edges != 40 {
				t.Errorf("boundary stats = %+v, want 40 nodes and 40 edges", res.Stats)
			}
			if res.GCode != nil {
				t.Error("partial result carries G-code")
			}
			if (res.Program != nil) != tt.wantProgram {
				t.Errorf("Program = %v, want present %v", res.Program, tt.wantProgram)
			}
		})
	}
}

func TestRunInvalidOptionsHasNoResult(t *testing.T) {
	opts := coarse()
	opts.ZClearance = 0
	res, err := NewRunner(nil, nil, quiet).Run(context.Background(), square(), opts)
	if res != nil || !ierrors.Is(err, ierrors.ErrCodeInvalidConfig) {
		t.Errorf("Run = %v, %v; want nil result and %s", res, err, ierrors.ErrCodeInvalidConfig)
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, quiet)
	ctx := context.Background()

	bad := coarse()
	bad.PlungeFeedrate = -1
	_, err := r.Execute(ctx, square(), bad)
	if !ierrors.Is(err, ierrors.ErrCodeInvalidConfig) {
		t.Errorf("bad options error = %v, want %s", err, ierrors.ErrCodeInvalidConfig)
	}

	_, err = r.Execute(ctx, raster.NewGrid(0, 0), coarse())
	if !ierrors.Is(err, ierrors.ErrCodeInvalidRaster) || !errors.Is(err, raster.ErrEmpty) {
		t.Errorf("empty raster error = %v, want %s wrapping ErrEmpty", err, ierrors.ErrCodeInvalidRaster)
	}
}

type recordingHooks struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	stages []progress.Stage
}

func (h *recordingHooks) OnStageComplete(_ context.Context, s progress.Stage, _ int, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, s)
}

func TestExecuteHooksAndProgress(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	var last = map[progress.Stage][2]int{}
	opts := coarse()
	opts.Progress = progress.Func(func(s progress.Stage, done, total int) {
		last[s] = [2]int{done, total}
	})
	if _, err := NewRunner(nil, nil, quiet).Execute(context.Background(), square(), opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !reflect.DeepEqual(hooks.stages, progress.Stages) {
		t.Errorf("stages = %v, want %v", hooks.stages, progress.Stages)
	}
	for _, s := range progress.Stages {
		if p := last[s]; p[0] != p[1] {
			t.Errorf("stage %s ended at %d/%d", s, p[0], p[1])
		}
	}
}

func TestExecuteUniformRaster(t *testing.T) {
	g := raster.NewGrid(8, 8)
	res, err := NewRunner(nil, nil, quiet).Execute(context.Background(), g, DefaultOptions())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Stats.Paths != 0 || res.Stats.Moves != 0 {
		t.Errorf("uniform raster produced %+v", res.Stats)
	}
	if !bytes.HasSuffix(res.GCode, []byte("M5\nM2\n")) {
		t.Errorf("empty program missing postamble:\n%s", res.GCode)
	}
}
