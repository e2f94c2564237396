// Package catalog merges statically declared and deployment-configured event
// definitions into a single lookup.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// IOEventsSection is the deployment config key holding dynamic subscriptions.
const IOEventsSection = "io_events"

// StaticSource provides definitions declared alongside the code.
type StaticSource interface {
	Read() (map[string]StaticDefinition, error)
}

// DynamicSource provides the raw io_events section of the deployment config.
type DynamicSource interface {
	IOEvents() (map[string]any, error)
}

// Versioner is implemented by sources that can tell whether they changed
// without being read in full.
type Versioner interface {
	Version() (string, error)
}

// EventList is the merged catalog. It loads lazily on first use and keeps
// the snapshot until Refresh is called or a Versioner source reports a new
// version, so a running server sees subscriptions written by the CLI.
type EventList struct {
	static  StaticSource
	dynamic DynamicSource

	mu      sync.Mutex
	events  map[string]*events.Definition
	version string
}

// NewEventList creates a new EventList.
func NewEventList(static StaticSource, dynamic DynamicSource) *EventList {
	return &EventList{static: static, dynamic: dynamic}
}

// All returns every definition keyed by name.
func (l *EventList) All() (map[string]*events.Definition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	version, err := l.sourceVersion()
	if err != nil {
		return nil, err
	}

	if l.events == nil || version != l.version {
		loaded, err := l.load()
		if err != nil {
			return nil, err
		}
		l.events = loaded
		l.version = version
	}
	return l.events, nil
}

func (l *EventList) sourceVersion() (string, error) {
	var parts []string
	for _, src := range []any{l.static, l.dynamic} {
		v, ok := src.(Versioner)
		if !ok {
			continue
		}
		version, err := v.Version()
		if err != nil {
			return "", err
		}
		parts = append(parts, version)
	}
	return strings.Join(parts, "|"), nil
}

// Sorted returns every definition ordered by name.
func (l *EventList) Sorted() ([]*events.Definition, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}

	out := make([]*events.Definition, 0, len(all))
	for _, def := range all {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Refresh drops the cached snapshot. The next call reloads both sources.
func (l *EventList) Refresh() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// Get returns the definition for code, with or without the commerce prefix.
// It returns nil when no definition exists.
func (l *EventList) Get(code string) (*events.Definition, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	return all[RemoveCommercePrefix(code)], nil
}

// IsEventEnabled reports whether any enabled definition fires for code.
func (l *EventList) IsEventEnabled(code string) (bool, error) {
	all, err := l.All()
	if err != nil {
		return false, err
	}

	code = RemoveCommercePrefix(code)
	for _, def := range all {
		if def.IsBasedOn(code) && def.Enabled {
			return true, nil
		}
	}
	return false, nil
}

// RemoveCommercePrefix strips the commerce prefix from code.
func RemoveCommercePrefix(code string) string {
	return events.StripPrefix(code)
}

func (l *EventList) load() (map[string]*events.Definition, error) {
	required, err := l.static.Read()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*events.Definition, len(required))
	for name, s := range required {
		out[name] = &events.Definition{
			Name:    name,
			Parent:  s.Parent,
			Fields:  s.Fields,
			Rules:   s.Rules,
			Enabled: true,
		}
	}

	optional, err := l.dynamic.IOEvents()
	if err != nil {
		return nil, err
	}

	for rawName, rawData := range optional {
		name := strings.ToLower(rawName)
		if _, ok := required[name]; ok {
			continue
		}

		def, err := definitionFromConfig(name, rawData)
		if err != nil {
			return nil, err
		}
		out[name] = def
	}

	return out, nil
}

// ValidateEventData checks that a deployment config entry is a mapping with
// at least one field.
func ValidateEventData(name string, data any) error {
	m, ok := data.(map[string]any)
	if !ok || isEmpty(m["fields"]) {
		return fmt.Errorf("%w: wrong configuration in %q section for the event %q: "+
			"the configuration must be in array format with at least one field configured",
			events.ErrInvalidConfiguration, IOEventsSection, name)
	}
	return nil
}

func definitionFromConfig(name string, data any) (*events.Definition, error) {
	if err := ValidateEventData(name, data); err != nil {
		return nil, err
	}
	m := data.(map[string]any)

	fields, err := toStrings(m["fields"])
	if err != nil {
		return nil, fmt.Errorf("%w: event %q: fields: %v", events.ErrInvalidConfiguration, name, err)
	}

	rules, err := toRules(m["rules"])
	if err != nil {
		return nil, fmt.Errorf("%w: event %q: rules: %v", events.ErrInvalidConfiguration, name, err)
	}

	parent, _ := m["parent"].(string)

	return &events.Definition{
		Name:     name,
		Parent:   parent,
		Fields:   fields,
		Rules:    rules,
		Enabled:  isEnabled(m),
		Optional: true,
	}, nil
}

// isEnabled treats a missing flag as enabled and otherwise requires the
// value 1 (true is accepted as well).
func isEnabled(m map[string]any) bool {
	v, ok := m["enabled"]
	if !ok {
		return true
	}
	switch t := v.(type) {
	case int:
		return t == 1
	case int64:
		return t == 1
	case uint64:
		return t == 1
	case float64:
		return t == 1
	case bool:
		return t
	default:
		return false
	}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case string:
		return t == ""
	default:
		return false
	}
}

func toStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func toRules(v any) ([]events.Rule, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", v)
	}

	rules := make([]events.Rule, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected a rule mapping, got %T", item)
		}
		rules = append(rules, events.Rule{
			Field:    fmt.Sprint(valueOr(m["field"])),
			Operator: fmt.Sprint(valueOr(m["operator"])),
			Value:    fmt.Sprint(valueOr(m["value"])),
		})
	}
	return rules, nil
}

func valueOr(v any) any {
	if v == nil {
		return ""
	}
	return v
}
