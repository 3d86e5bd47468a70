package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/isomill/pkg/boundary"
	"github.com/matzehuels/isomill/pkg/contour"
	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/raster"
	"github.com/matzehuels/isomill/pkg/render/graphdot"
)

const (
	graphFormatDOT = "dot"
	graphFormatSVG = "svg"
)

// graphCommand creates the graph command, a debugging aid that draws the
// boundary graph of a raster with each traced contour in its own color.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output  string
		format  string
		spacing float64
	)

	cmd := &cobra.Command{
		Use:   "graph [raster]",
		Short: "Draw the boundary graph of a raster",
		Long: `Draw the boundary graph of a raster.

The graph has one node per pixel corner that lies on a color boundary.
Edges are colored by the contour that traces them; edges no contour
covers are drawn red. Output is Graphviz DOT or SVG rendered with the
neato layout engine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ierrors.ValidateOneOf("format", format, graphFormatDOT, graphFormatSVG); err != nil {
				return err
			}
			return c.runGraph(cmd.Context(), args[0], output, format, spacing)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: <input>.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", graphFormatSVG, "output format: svg, dot")
	cmd.Flags().Float64Var(&spacing, "spacing", graphdot.DefaultSpacing, "distance between adjacent corners in points")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input, output, format string, spacing float64) error {
	logger := loggerFromContext(ctx)
	t := newTimer(logger)

	img, err := raster.Load(input)
	if err != nil {
		return fmt.Errorf("load raster %s: %w", input, err)
	}

	spinner := newSpinnerWithContext(ctx, "Tracing boundaries")
	spinner.Start()
	g, contours, err := traceGraph(ctx, img, spinner)
	if err != nil {
		spinner.StopWithError("Tracing failed")
		return err
	}

	dot := graphdot.ToDOT(g, graphdot.Options{Spacing: spacing, Contours: contours})
	data := []byte(dot)
	if format == graphFormatSVG {
		data, err = graphdot.RenderSVG(ctx, dot)
		if err != nil {
			spinner.StopWithError("Rendering failed")
			return fmt.Errorf("render graph: %w", err)
		}
	}
	spinner.Stop()

	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + format
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return ierrors.Wrap(ierrors.ErrCodeIO, err, "write %s", output)
	}
	t.done("Graph written")

	st := contour.Summarize(contours)
	printSuccess("Boundary graph for %s", input)
	printFile(output)
	printKeyValue("nodes", fmt.Sprint(g.Len()))
	printKeyValue("edges", fmt.Sprint(len(g.Edges())))
	printKeyValue("contours", fmt.Sprintf("%d (%d closed)", st.Contours, st.Closed))
	return nil
}

// traceGraph builds and validates the boundary graph of img and extracts
// its contours.
func traceGraph(ctx context.Context, img raster.Raster, spinner *Spinner) (*boundary.Graph, []contour.Contour, error) {
	if err := raster.Validate(img); err != nil {
		return nil, nil, ierrors.Wrap(ierrors.ErrCodeInvalidRaster, err, "input raster")
	}
	g, err := boundary.Build(ctx, img, spinner)
	if err != nil {
		return nil, nil, fmt.Errorf("build boundary graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate boundary graph: %w", err)
	}
	contours, err := contour.Extract(ctx, g, spinner)
	if err != nil {
		return nil, nil, fmt.Errorf("extract contours: %w", err)
	}
	return g, contours, nil
}
