package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	ierrors "github.com/matzehuels/isomill/pkg/errors"
	strokeio "github.com/matzehuels/isomill/pkg/io"
	"github.com/matzehuels/isomill/pkg/pipeline"
	"github.com/matzehuels/isomill/pkg/progress"
	"github.com/matzehuels/isomill/pkg/raster"
	"github.com/matzehuels/isomill/pkg/render/preview"
)

// millFlags holds the mill command's non-option flags.
type millFlags struct {
	config   string
	output   string
	preview  string
	strokes  string
	travel   bool
	noCache  bool
	progress bool
}

// millCommand creates the mill command, which runs the full pipeline.
func (c *CLI) millCommand() *cobra.Command {
	var flags millFlags
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "mill [raster]",
		Short: "Generate isolation milling G-code from a classified raster",
		Long: `Generate isolation milling G-code from a classified raster.

Every boundary between two differently colored regions becomes a milling
path. The raster may be PNG, BMP, TIFF, GIF or JPEG; each distinct RGB
value is one region.

Options can be read from a TOML, YAML or JSON job file with --config.
Flags given on the command line override the file.

Results are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveOptions(cmd, flags.config, opts)
			if err != nil {
				return err
			}
			return c.runMill(cmd.Context(), args[0], resolved, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "job file (.toml, .yaml, .json)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "G-code output file (default: stdout)")
	cmd.Flags().StringVar(&flags.preview, "preview", "", "write a PNG preview of the toolpaths")
	cmd.Flags().BoolVar(&flags.travel, "preview-travel", true, "draw rapid moves in the preview")
	cmd.Flags().StringVar(&flags.strokes, "strokes", "", "write tool strokes as JSON")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "show per-stage progress bars")
	addOptionFlags(cmd, &opts)

	return cmd
}

// runMill loads the raster, runs the pipeline and writes every requested
// output.
func (c *CLI) runMill(ctx context.Context, input string, opts pipeline.Options, flags millFlags) error {
	logger := loggerFromContext(ctx)
	t := newTimer(logger)

	img, err := raster.Load(input)
	if err != nil {
		return fmt.Errorf("load raster %s: %w", input, err)
	}
	logger.Debug("raster loaded", "path", input, "width", img.Width(), "height", img.Height())

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = logger
	var res *pipeline.Result
	execute := func(ctx context.Context, rep progress.Reporter) error {
		opts.Progress = rep
		var err error
		res, err = runner.Execute(ctx, img, opts)
		return err
	}

	title := "Milling " + filepath.Base(input)
	if flags.progress {
		err = runWithProgressBar(ctx, title, execute)
	} else {
		spinner := newSpinnerWithContext(ctx, title)
		spinner.Start()
		err = execute(ctx, spinner)
		if err != nil && ctx.Err() == nil {
			spinner.StopWithError("Milling failed")
		} else {
			spinner.Stop()
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("mill %s: %w", input, err)
	}

	if err := writeGCode(flags.output, res.GCode); err != nil {
		return err
	}
	units := opts.Settings().Units()
	if flags.preview != "" {
		err := writePreview(flags.preview, res, flags.travel)
		switch {
		case errors.Is(err, preview.ErrEmpty):
			printWarning("No toolpaths to preview")
			flags.preview = ""
		case err != nil:
			return err
		}
	}
	if flags.strokes != "" {
		if err := strokeio.ExportStrokes(res.Strokes, units, flags.strokes); err != nil {
			return ierrors.Wrap(ierrors.ErrCodeIO, err, "write strokes %s", flags.strokes)
		}
	}
	t.done("Milling complete")

	printSuccess("Toolpaths for %s", input)
	for _, path := range []string{flags.output, flags.preview, flags.strokes} {
		if path != "" && path != "-" {
			printFile(path)
		}
	}
	printStats(res.Stats, units, res.CacheHit)
	if res.Stats.Skipped > 0 {
		printWarning("%d degenerate contours were skipped", res.Stats.Skipped)
	}
	if flags.output != "" && flags.preview == "" {
		printNewline()
		printNextStep("Preview", fmt.Sprintf("%s mill %s --preview %s", appName, input, previewPath(flags.output)))
	}
	return nil
}

func writeGCode(path string, gcode []byte) error {
	if path == "" || path == "-" {
		if _, err := os.Stdout.Write(gcode); err != nil {
			return ierrors.Wrap(ierrors.ErrCodeIO, err, "write G-code")
		}
		return nil
	}
	if err := os.WriteFile(path, gcode, 0644); err != nil {
		return ierrors.Wrap(ierrors.ErrCodeIO, err, "write G-code %s", path)
	}
	return nil
}

func writePreview(path string, res *pipeline.Result, travel bool) error {
	f, err := os.Create(path)
	if err != nil {
		return ierrors.Wrap(ierrors.ErrCodeIO, err, "create preview %s", path)
	}
	if err := preview.WritePNG(f, res.Strokes, preview.Options{ShowTravel: travel}); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render preview %s: %w", path, err)
	}
	return f.Close()
}

// previewPath derives "<base>.png" from a G-code output path.
func previewPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".png"
}
