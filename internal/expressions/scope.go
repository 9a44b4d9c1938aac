package expressions

import (
	"encoding/json"
	"math"
)

// Merge shallow-merges delta into base by key and returns base. Existing
// keys are overwritten. A nil base is allocated.
func Merge(base, delta map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any, len(delta))
	}
	for k, v := range delta {
		base[k] = v
	}
	return base
}

// Snapshot returns a deep copy of a context map so later merges cannot
// alter a recorded trace entry.
func Snapshot(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return deepCopyMap(m)
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

// deepCopyAny recursively deep-copies maps and slices. Scalars are returned as-is.
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	case json.RawMessage:
		if val == nil {
			return nil
		}
		cp := make(json.RawMessage, len(val))
		copy(cp, val)
		return cp
	default:
		return v
	}
}

// Normalize round-trips v through JSON so that engines which accept only
// JSON-shaped values (float64 numbers, []any, map[string]any) can consume it.
func Normalize(v map[string]any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONSafe returns a deep copy of v in which NaN and infinite floats are
// replaced by nil, the value JSON.stringify would emit for them.
func JSONSafe(v any) any {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case float32:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil
		}
		return val
	case map[string]any:
		if val == nil {
			return val
		}
		cp := make(map[string]any, len(val))
		for k, item := range val {
			cp[k] = JSONSafe(item)
		}
		return cp
	case []any:
		if val == nil {
			return val
		}
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = JSONSafe(item)
		}
		return cp
	default:
		return v
	}
}

// JSONSafeMap is JSONSafe for a context map.
func JSONSafeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := JSONSafe(m).(map[string]any)
	return out
}
