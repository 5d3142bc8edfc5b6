package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/MicroMind/backend/internal/shared/utils"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Format is a manifest encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

var (
	ErrUnknownFormat = errors.New("unknown manifest format")
	ErrInvalid       = errors.New("invalid manifest")
)

// Entry names one module of the pipeline
type Entry struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	Kind string `json:"kind" yaml:"kind" toml:"kind"`
}

// Manifest lists pipeline modules in execution order
type Manifest struct {
	Modules []Entry `json:"modules" yaml:"modules" toml:"modules"`
}

// FormatFromPath picks a format from the file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// LoadFile reads and validates the manifest at path
func LoadFile(path string) (*Manifest, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return Parse(data, format)
}

// Parse decodes and validates a manifest
func Parse(data []byte, format Format) (*Manifest, error) {
	var m Manifest
	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	case FormatJSON:
		err = sonic.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s manifest: %w", format, err)
	}

	if err := m.normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode renders the manifest in format
func (m *Manifest) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(m)
	case FormatTOML:
		return toml.Marshal(m)
	case FormatJSON:
		return sonic.MarshalIndent(m, "", "  ")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// normalize defaults names to kinds and rejects blank kinds, unsafe names and
// duplicate names
func (m *Manifest) normalize() error {
	seen := make(map[string]struct{}, len(m.Modules))
	for i := range m.Modules {
		e := &m.Modules[i]
		e.Kind = strings.TrimSpace(e.Kind)
		e.Name = strings.TrimSpace(e.Name)
		if e.Kind == "" {
			return fmt.Errorf("%w: module %d has no kind", ErrInvalid, i)
		}
		if e.Name == "" {
			e.Name = e.Kind
		}
		if err := utils.ValidateName(e.Name); err != nil {
			return fmt.Errorf("%w: module %d: %v", ErrInvalid, i, err)
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate module name %q", ErrInvalid, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// Names returns module names in execution order
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Modules))
	for i, e := range m.Modules {
		names[i] = e.Name
	}
	return names
}
