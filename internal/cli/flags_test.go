package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	ierrors "github.com/matzehuels/isomill/pkg/errors"
	"github.com/matzehuels/isomill/pkg/pipeline"
)

func parseOptionFlags(t *testing.T, args ...string) (*cobra.Command, pipeline.Options) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	var opts pipeline.Options
	addOptionFlags(cmd, &opts)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	return cmd, opts
}

func TestOptionFlagsDefaults(t *testing.T) {
	_, opts := parseOptionFlags(t)
	if opts.Mode != pipeline.DefaultMode || opts.ZClearance != pipeline.DefaultZClearance ||
		opts.Resolution != pipeline.DefaultResolution || opts.MillingFeedrate != pipeline.DefaultFeedrate {
		t.Errorf("flag defaults = %+v", opts)
	}
	if opts.Logger != nil {
		t.Error("flag defaults should not carry a logger")
	}
}

func TestOptionFlagsCoverEveryOption(t *testing.T) {
	cmd, _ := parseOptionFlags(t)
	for _, of := range optionFlags {
		if cmd.Flags().Lookup(of.name) == nil {
			t.Errorf("option flag %q is not registered", of.name)
		}
	}
}

func TestResolveOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.toml")
	job := `
mode = "outline"
metric = true
z_clearance = 0.2
resolution = 600
`
	if err := os.WriteFile(path, []byte(job), 0644); err != nil {
		t.Fatal(err)
	}

	cmd, flagOpts := parseOptionFlags(t, "--z-clearance", "0.3", "--absolute")
	got, err := resolveOptions(cmd, path, flagOpts)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}

	tests := []struct {
		name      string
		got, want any
	}{
		{"mode from file", got.Mode, "outline"},
		{"metric from file", got.Metric, true},
		{"resolution from file", got.Resolution, 600.0},
		{"z-clearance flag wins", got.ZClearance, 0.3},
		{"absolute flag", got.Absolute, true},
		{"absent key keeps default", got.PlungeFeedrate, pipeline.DefaultFeedrate},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestResolveOptionsKeepsExplicitZero(t *testing.T) {
	cmd, flagOpts := parseOptionFlags(t, "--plunge-feedrate", "0", "--z-clearance", "0")
	got, err := resolveOptions(cmd, "", flagOpts)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	if got.PlungeFeedrate != 0 || got.ZClearance != 0 {
		t.Fatalf("explicit zeros replaced: %+v", got)
	}
	if err := got.ValidateAndSetDefaults(); !ierrors.Is(err, ierrors.ErrCodeInvalidConfig) {
		t.Errorf("ValidateAndSetDefaults = %v, want %s", err, ierrors.ErrCodeInvalidConfig)
	}
}

func TestResolveOptionsWithoutConfig(t *testing.T) {
	cmd, flagOpts := parseOptionFlags(t, "--metric")
	got, err := resolveOptions(cmd, "", flagOpts)
	if err != nil {
		t.Fatalf("resolveOptions: %v", err)
	}
	if !got.Metric || got.Resolution != pipeline.DefaultResolution {
		t.Errorf("resolveOptions without config = %+v", got)
	}
}

func TestResolveOptionsBadConfig(t *testing.T) {
	cmd, flagOpts := parseOptionFlags(t)
	if _, err := resolveOptions(cmd, filepath.Join(t.TempDir(), "missing.yaml"), flagOpts); err == nil {
		t.Error("resolveOptions with a missing file succeeded")
	}
}
