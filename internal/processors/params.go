package processors

import (
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
)

// Param helpers used by all processor files.

func stringParam(m map[string]any, key, defaultVal string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal
	}
	if s, ok := v.(string); ok {
		return s
	}
	return expressions.Stringify(v)
}

func intParam(m map[string]any, key string, defaultVal int) int {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return defaultVal
		}
		return int(i)
	default:
		i, err := cast.ToIntE(v)
		if err != nil {
			return defaultVal
		}
		return i
	}
}

func mapParam(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func sliceParam(m map[string]any, key string) []any {
	switch v := m[key].(type) {
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

// substituted reads a string config key and resolves its placeholders.
func substituted(in Input, key string) string {
	return expressions.Substitute(stringParam(in.Config(), key, ""), in.Data)
}
