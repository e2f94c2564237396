package catalog

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// SupportedList is the set of plugin event codes that can be subscribed to.
// The list is produced ahead of time by scanning the platform's service
// interfaces and is loaded once.
type SupportedList struct {
	path string

	mu    sync.Mutex
	codes map[string]struct{}
}

// NewSupportedList creates a SupportedList backed by the YAML file at path.
func NewSupportedList(path string) *SupportedList {
	return &SupportedList{path: path}
}

// NewSupportedListOf creates an in-memory SupportedList.
func NewSupportedListOf(codes ...string) *SupportedList {
	l := &SupportedList{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		l.codes[c] = struct{}{}
	}
	return l
}

// Contains reports whether code (without the commerce prefix) is supported.
func (l *SupportedList) Contains(code string) (bool, error) {
	codes, err := l.load()
	if err != nil {
		return false, err
	}
	_, ok := codes[code]
	return ok, nil
}

func (l *SupportedList) load() (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.codes != nil {
		return l.codes, nil
	}

	codes := make(map[string]struct{})
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read supported events file: %w", err)
		}

		var file struct {
			Events []string `yaml:"events"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse supported events file: %w", err)
		}
		for _, c := range file.Events {
			codes[c] = struct{}{}
		}
	}

	l.codes = codes
	return codes, nil
}
