package filter

import "strings"

// PathSeparator separates segments of a nested field path.
const PathSeparator = "."

// GetNested reads the value at the dotted path from data.
// It returns nil as soon as a segment is missing or is not a map.
func GetNested(data map[string]any, path string) any {
	return getNested(data, strings.Split(path, PathSeparator))
}

// SetNested writes value at the dotted path in data, creating intermediate
// maps as needed. Non-map values in the way are replaced.
func SetNested(data map[string]any, path string, value any) {
	setNested(data, strings.Split(path, PathSeparator), value)
}

func getNested(data map[string]any, keys []string) any {
	var current any = data
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok {
			return nil
		}
	}
	return current
}

func setNested(data map[string]any, keys []string, value any) {
	current := data
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}
