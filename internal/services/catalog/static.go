package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// StaticDefinition is a catalog entry declared in the versioned events file.
type StaticDefinition struct {
	Name   string        `yaml:"name"`
	Parent string        `yaml:"parent"`
	Fields []string      `yaml:"fields"`
	Rules  []events.Rule `yaml:"rules"`
}

type staticFile struct {
	Events []StaticDefinition `yaml:"events"`
}

// FileSource reads static definitions from a YAML file.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path. An empty path yields no
// definitions.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Read implements StaticSource. Names and parents are lower-cased.
func (s *FileSource) Read() (map[string]StaticDefinition, error) {
	if s.path == "" {
		return map[string]StaticDefinition{}, nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}
	return ParseStatic(data)
}

// Version identifies the events file contents by modification time and size.
func (s *FileSource) Version() (string, error) {
	if s.path == "" {
		return "", nil
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to stat events file: %w", err)
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

// ParseStatic decodes the YAML events document.
func ParseStatic(data []byte) (map[string]StaticDefinition, error) {
	var file staticFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: malformed events file: %v", events.ErrInvalidConfiguration, err)
	}

	out := make(map[string]StaticDefinition, len(file.Events))
	for _, def := range file.Events {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: event without a name in events file", events.ErrInvalidConfiguration)
		}
		def.Name = strings.ToLower(def.Name)
		def.Parent = strings.ToLower(def.Parent)
		out[def.Name] = def
	}
	return out, nil
}
