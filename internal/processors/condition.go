package processors

import (
	"context"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/Harshvardhan-91/APIfyn-backend/internal/expressions"
	"github.com/Harshvardhan-91/APIfyn-backend/pkg/schema"
)

func ifCondition(_ context.Context, in Input) (map[string]any, error) {
	cfg := in.Config()
	field := stringParam(cfg, "field", "")
	actual, present := in.Data[field]
	return map[string]any{
		"condition_result": Compare(stringParam(cfg, "operator", ""), actual, present, cfg["value"]),
	}, nil
}

// Compare applies an if-condition operator. present reports whether the
// field exists in the context. Unknown operators yield false.
func Compare(op string, actual any, present bool, expected any) bool {
	switch op {
	case schema.OpEquals:
		return expressions.StrictEqual(actual, expected)
	case schema.OpNotEquals:
		return !expressions.StrictEqual(actual, expected)
	case schema.OpContains:
		return strings.Contains(jsString(actual, present), jsString(expected, true))
	case schema.OpGreaterThan:
		return toNumber(actual, present) > toNumber(expected, true)
	case schema.OpLessThan:
		return toNumber(actual, present) < toNumber(expected, true)
	default:
		return false
	}
}

// jsString renders a value the way String() would in a browser.
func jsString(v any, present bool) string {
	if !present {
		return "undefined"
	}
	if v == nil {
		return "null"
	}
	return expressions.Stringify(v)
}

// toNumber coerces like Number(): missing is NaN, null and "" are 0,
// booleans are 0/1, unparseable strings are NaN.
func toNumber(v any, present bool) float64 {
	if !present {
		return math.NaN()
	}
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := cast.ToFloat64E(s)
		if err != nil {
			return math.NaN()
		}
		return f
	}
	if n, ok := expressions.Number(v); ok {
		return n
	}
	return math.NaN()
}
