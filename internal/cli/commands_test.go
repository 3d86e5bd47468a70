package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/isomill/pkg/buildinfo"
	strokeio "github.com/matzehuels/isomill/pkg/io"
	"github.com/matzehuels/isomill/pkg/pipeline"
)

// writeSquarePNG writes a 20x20 image with a 10x10 island at (5,5).
func writeSquarePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x >= 5 && x < 15 && y >= 5 && y < 15 {
				c = color.RGBA{200, 120, 40, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(dir, "board.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the root command with args and returns its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	quietUI(t)
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func countCacheEntries(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() && strings.HasSuffix(path, ".json") {
			n++
		}
		return nil
	})
	return n
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	want := map[string]bool{"mill": false, "graph": false, "serve": false, "cache": false, "completion": false}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out, buildinfo.Version) {
		t.Errorf("--version output = %q, want version %q", out, buildinfo.Version)
	}
}

func TestMillCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := t.TempDir()
	input := writeSquarePNG(t, dir)
	output := filepath.Join(dir, "board.nc")
	strokesPath := filepath.Join(dir, "strokes.json")
	previewFile := filepath.Join(dir, "preview.png")

	_, err := run(t, "mill", input,
		"-o", output,
		"--strokes", strokesPath,
		"--preview", previewFile,
		"--resolution", "100",
		"--absolute",
		"--metric")
	if err != nil {
		t.Fatalf("mill: %v", err)
	}

	gcode, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read G-code: %v", err)
	}
	for _, want := range []string{"G21\n", "G90\n", "M2\n"} {
		if !bytes.Contains(gcode, []byte(want)) {
			t.Errorf("G-code missing %q", want)
		}
	}

	strokes, units, err := strokeio.ImportStrokes(strokesPath)
	if err != nil {
		t.Fatalf("ImportStrokes: %v", err)
	}
	if units != "mm" || len(strokes) != 7 {
		t.Errorf("strokes: units %q, %d strokes; want mm, 7", units, len(strokes))
	}

	f, err := os.Open(previewFile)
	if err != nil {
		t.Fatalf("open preview: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("preview is not a PNG: %v", err)
	}
}

func TestMillCommandCaches(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	dir := t.TempDir()
	input := writeSquarePNG(t, dir)
	output := filepath.Join(dir, "board.nc")

	if _, err := run(t, "mill", input, "-o", output, "--resolution", "100"); err != nil {
		t.Fatalf("mill: %v", err)
	}
	if n := countCacheEntries(t, cacheHome); n != 1 {
		t.Fatalf("cache entries after mill = %d, want 1", n)
	}

	if _, err := run(t, "mill", input, "-o", output, "--resolution", "100", "--no-cache"); err != nil {
		t.Fatalf("mill --no-cache: %v", err)
	}
	if n := countCacheEntries(t, cacheHome); n != 1 {
		t.Errorf("cache entries after --no-cache = %d, want 1", n)
	}

	if _, err := run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if n := countCacheEntries(t, cacheHome); n != 0 {
		t.Errorf("cache entries after clear = %d, want 0", n)
	}
}

func TestMillCommandConfig(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := t.TempDir()
	input := writeSquarePNG(t, dir)
	output := filepath.Join(dir, "board.nc")
	job := filepath.Join(dir, "job.yaml")
	if err := os.WriteFile(job, []byte("resolution: 100\nmetric: true\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "mill", input, "-o", output, "--config", job, "--metric=false"); err != nil {
		t.Fatalf("mill: %v", err)
	}
	gcode, _ := os.ReadFile(output)
	if !bytes.Contains(gcode, []byte("\nG20\n")) {
		t.Errorf("--metric=false did not override the job file:\n%s", gcode)
	}
}

func TestMillCommandErrors(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	dir := t.TempDir()
	input := writeSquarePNG(t, dir)
	zeroJob := filepath.Join(dir, "zero.toml")
	if err := os.WriteFile(zeroJob, []byte("plunge_feedrate = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"zero plunge feed", []string{"mill", input, "--no-cache", "--plunge-feedrate", "0", "-o", filepath.Join(dir, "x.nc")}},
		{"zero clearance", []string{"mill", input, "--no-cache", "--z-clearance", "0", "-o", filepath.Join(dir, "x.nc")}},
		{"zero feed in job file", []string{"mill", input, "--no-cache", "--config", zeroJob, "-o", filepath.Join(dir, "x.nc")}},
		{"missing raster", []string{"mill", filepath.Join(dir, "nope.png")}},
		{"bad mode", []string{"mill", input, "--mode", "spiral", "-o", filepath.Join(dir, "x.nc")}},
		{"negative feed", []string{"mill", input, "--milling-feedrate", "-2", "-o", filepath.Join(dir, "x.nc")}},
		{"no args", []string{"mill"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Errorf("%v succeeded, want error", tt.args)
			}
		})
	}
	if _, err := os.Stat(filepath.Join(dir, "x.nc")); !os.IsNotExist(err) {
		t.Errorf("rejected runs wrote G-code (stat err = %v)", err)
	}
}

func TestGraphCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeSquarePNG(t, dir)
	output := filepath.Join(dir, "board.dot")

	if _, err := run(t, "graph", input, "-f", "dot", "-o", output); err != nil {
		t.Fatalf("graph: %v", err)
	}
	dot, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read DOT: %v", err)
	}
	if !bytes.HasPrefix(dot, []byte("graph G {")) {
		t.Errorf("output is not DOT:\n%s", dot)
	}
	if got := bytes.Count(dot, []byte(" -- ")); got != 40 {
		t.Errorf("DOT has %d edges, want 40", got)
	}

	if _, err := run(t, "graph", input, "-f", "pdf"); err == nil {
		t.Error("graph -f pdf succeeded, want error")
	}
}

func TestCachePathCommand(t *testing.T) {
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)

	out, err := run(t, "cache", "path")
	if err != nil {
		t.Fatalf("cache path: %v", err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(cacheHome, appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		out, err := run(t, "completion", shell)
		if err != nil {
			t.Errorf("completion %s: %v", shell, err)
			continue
		}
		if !strings.Contains(out, appName) {
			t.Errorf("completion %s output does not mention %s", shell, appName)
		}
	}
	if _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("completion tcsh succeeded, want error")
	}
}

func TestStatsLine(t *testing.T) {
	quietUI(t)
	line := statsLine(pipelineStats(), "in", true)
	for _, want := range []string{"3 paths", "21 moves", "cut 1.50 in", "1 skipped", iconCached} {
		if !strings.Contains(line, want) {
			t.Errorf("statsLine missing %q: %q", want, line)
		}
	}
}

func pipelineStats() pipeline.Stats {
	return pipeline.Stats{Paths: 3, Moves: 21, CutLength: 1.5, TravelLength: 0.25, Skipped: 1}
}
