// Package deployment stores per-deployment settings in a YAML file: the
// dynamic io_events section and the registered provider id.
package deployment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

const (
	sectionIOEvents = "io_events"
	sectionAdobeIO  = "adobe_io"
	keyProviderID   = "provider_id"
)

// Store reads and writes the deployment file. Every read goes to disk so
// edits made by other processes are picked up.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// IOEvents returns the io_events section, or an empty map.
func (s *Store) IOEvents() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	section, err := subsection(doc, sectionIOEvents)
	if err != nil {
		return nil, err
	}
	return section, nil
}

// Version identifies the current file contents by modification time and
// size. It is "" while the file does not exist.
func (s *Store) Version() (string, error) {
	return fileVersion(s.path)
}

// SetIOEvent writes io_events[name], replacing any previous value.
func (s *Store) SetIOEvent(name string, value map[string]any) error {
	return s.update(func(doc map[string]any) error {
		section, err := subsection(doc, sectionIOEvents)
		if err != nil {
			return err
		}
		section[name] = value
		doc[sectionIOEvents] = section
		return nil
	})
}

// ProviderID returns the registered provider id, or "" when none is set.
func (s *Store) ProviderID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return "", err
	}
	section, err := subsection(doc, sectionAdobeIO)
	if err != nil {
		return "", err
	}
	id, _ := section[keyProviderID].(string)
	return id, nil
}

// SetProviderID records the provider id.
func (s *Store) SetProviderID(id string) error {
	return s.update(func(doc map[string]any) error {
		section, err := subsection(doc, sectionAdobeIO)
		if err != nil {
			return err
		}
		section[keyProviderID] = id
		doc[sectionAdobeIO] = section
		return nil
	})
}

func (s *Store) update(fn func(doc map[string]any) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *Store) read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment config: %w", err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: deployment config %s: %v", events.ErrInvalidConfiguration, s.path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// write replaces the file atomically.
func (s *Store) write(doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode deployment config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".deployment-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write deployment config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write deployment config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write deployment config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace deployment config: %w", err)
	}
	return nil
}

func fileVersion(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat deployment config: %w", err)
	}
	return fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()), nil
}

func subsection(doc map[string]any, name string) (map[string]any, error) {
	raw, ok := doc[name]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: deployment config section %q must be a mapping, got %T",
			events.ErrInvalidConfiguration, name, raw)
	}
	return section, nil
}
