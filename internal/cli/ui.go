package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/isomill/pkg/pipeline"
)

// Status output goes to stderr so G-code can be piped from stdout.
var uiOut io.Writer = os.Stderr

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
	styleCommand  = lipgloss.NewStyle().Foreground(colorBlue)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(uiOut, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented dim line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints an output file line.
func printFile(path string) {
	fmt.Fprintln(uiOut, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(uiOut, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// printStats prints run statistics on a single line.
func printStats(st pipeline.Stats, units string, cached bool) {
	fmt.Fprintln(uiOut, statsLine(st, units, cached))
}

func statsLine(st pipeline.Stats, units string, cached bool) string {
	parts := []string{
		fmt.Sprintf("%d paths", st.Paths),
		fmt.Sprintf("%d moves", st.Moves),
		fmt.Sprintf("cut %.2f %s", st.CutLength, units),
		fmt.Sprintf("travel %.2f %s", st.TravelLength, units),
	}
	if st.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", st.Skipped))
	}

	status := styleComputed.Render(iconFresh)
	if cached {
		status = styleCached.Render(iconCached)
	}

	line := "  "
	for _, part := range parts {
		line += StyleDim.Render(part) + StyleDim.Render(" · ")
	}
	return line + status
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(uiOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(uiOut)
}
