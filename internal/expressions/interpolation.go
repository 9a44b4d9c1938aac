package expressions

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// placeholderRe matches {{ dotted.path }} references inside a template.
var placeholderRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Substitute replaces every resolvable {{path}} in template with the string
// form of the value found in data. Unresolvable references stay verbatim.
func Substitute(template string, data map[string]any) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderRe.FindStringSubmatch(match)
		val, ok := Lookup(data, strings.TrimSpace(sub[1]))
		if !ok {
			return match
		}
		return Stringify(val)
	})
}

// SubstituteValue applies Substitute to every string leaf of v, recursing
// through maps and slices. The input is not modified.
func SubstituteValue(v any, data map[string]any) any {
	switch val := v.(type) {
	case string:
		return Substitute(val, data)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = SubstituteValue(item, data)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = SubstituteValue(item, data)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = Substitute(item, data)
		}
		return out
	default:
		return v
	}
}

// Lookup walks a dot-delimited path through nested maps and slices.
// Integer segments index slices. A missing key or a nil value anywhere on the
// path reports false.
func Lookup(data map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = data
	for _, seg := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		default:
			return nil, false
		}
		if current == nil {
			return nil, false
		}
	}
	return current, true
}

// Stringify renders a context value the way it appears in substituted text.
// Whole numbers print without a fraction; maps and slices print as compact JSON.
func Stringify(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case json.Number:
		return v.String()
	case json.RawMessage:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
