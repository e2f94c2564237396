package capture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cornjacket/commerce-events/internal/shared/domain/events"
)

// cachePrefix marks internal cache entries that are never part of a payload.
const cachePrefix = "_cache"

// Mapper is implemented by payload values that know their own map form.
type Mapper interface {
	ToMap() map[string]any
}

// Normalize converts a payload into plain maps, slices and scalars.
// Mappers are expanded, other structs go through their JSON form, and
// keys starting with "_cache" are dropped at every level.
func Normalize(payload any) (map[string]any, error) {
	v, err := normalizeValue(payload)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return map[string]any{}, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: payload must be an object, got %T", events.ErrValidation, payload)
	}
	return m, nil
}

func normalizeValue(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return t, nil
	case Mapper:
		return normalizeMap(t.ToMap())
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			n, err := normalizeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("%w: payload value of type %T cannot be encoded: %v", events.ErrValidation, t, err)
		}
		var generic any
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, fmt.Errorf("failed to decode payload value: %w", err)
		}
		return normalizeValue(generic)
	}
}

func normalizeMap(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, cachePrefix) {
			continue
		}
		n, err := normalizeValue(v)
		if err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, nil
}
