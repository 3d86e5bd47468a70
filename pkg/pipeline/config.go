package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	ierrors "github.com/matzehuels/isomill/pkg/errors"
)

// Job file formats accepted by LoadOptions.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FormatFromPath maps a job file extension to its format.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", ierrors.New(ierrors.ErrCodeInvalidConfig, "unsupported job file %q (want .toml, .yaml, .yml or .json)", path)
}

// LoadOptions reads a job file. The format follows the file extension.
// Keys absent from the file keep their [DefaultOptions] values.
func LoadOptions(path string) (Options, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Options{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read %s: %w", path, err)
	}
	opts, err := ParseOptions(data, format)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// ParseOptions decodes options in the given format over [DefaultOptions].
// Unknown keys are rejected so typos do not silently fall back to defaults;
// explicit zeros are kept and fail validation later.
func ParseOptions(data []byte, format string) (Options, error) {
	opts := DefaultOptions()
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &opts)
		if err != nil {
			return Options{}, ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "parse TOML")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Options{}, ierrors.New(ierrors.ErrCodeInvalidConfig, "unknown key %q", undecoded[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			return Options{}, ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "parse YAML")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&opts); err != nil {
			return Options{}, ierrors.Wrap(ierrors.ErrCodeInvalidConfig, err, "parse JSON")
		}
	default:
		return Options{}, ierrors.New(ierrors.ErrCodeInvalidConfig, "unsupported job format %q", format)
	}
	return opts, nil
}
