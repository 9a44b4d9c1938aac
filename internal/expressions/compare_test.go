package expressions

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictEqual(t *testing.T) {
	assert.True(t, StrictEqual("ok", "ok"))
	assert.False(t, StrictEqual("1", 1.0))
	assert.True(t, StrictEqual(1, 1.0))
	assert.True(t, StrictEqual(json.Number("2.5"), 2.5))
	assert.True(t, StrictEqual(true, true))
	assert.False(t, StrictEqual(true, 1.0))
	assert.True(t, StrictEqual(nil, nil))
	assert.False(t, StrictEqual(nil, ""))
	assert.False(t, StrictEqual(map[string]any{}, map[string]any{}))
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{nil, false, 0, 0.0, math.NaN(), ""} {
		assert.False(t, Truthy(v), "%#v", v)
	}
	for _, v := range []any{true, 1, -2.5, "0", "false", map[string]any{}, []any{}} {
		assert.True(t, Truthy(v), "%#v", v)
	}
}
