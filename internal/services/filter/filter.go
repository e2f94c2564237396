// Package filter projects raw event payloads down to the fields an event
// definition allows.
package filter

import (
	"strings"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// DefinitionLookup resolves a catalog definition by event code.
type DefinitionLookup interface {
	Get(code string) (*events.Definition, error)
}

// FieldsFilter applies a definition's field allow-list to a payload.
type FieldsFilter struct {
	catalog DefinitionLookup
}

// NewFieldsFilter creates a new FieldsFilter.
func NewFieldsFilter(catalog DefinitionLookup) *FieldsFilter {
	return &FieldsFilter{catalog: catalog}
}

// Filter returns the projection of data onto the fields declared for code.
// Unknown codes and definitions without fields pass data through unchanged.
func (f *FieldsFilter) Filter(code string, data map[string]any) (map[string]any, error) {
	def, err := f.catalog.Get(code)
	if err != nil {
		return nil, err
	}
	if def == nil || len(def.Fields) == 0 {
		return data, nil
	}
	return Project(def.Fields, data), nil
}

// Project builds a new map holding only the given field paths of data.
// Missing paths are present in the result with a nil value.
func Project(fields []string, data map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if strings.Contains(field, PathSeparator) {
			keys := strings.Split(field, PathSeparator)
			setNested(out, keys, clone(getNested(data, keys)))
			continue
		}
		out[field] = clone(data[field])
	}
	return out
}

// clone copies nested maps and slices so later writes into the projection
// never reach the caller's payload.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = clone(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = clone(val)
		}
		return s
	default:
		return v
	}
}
