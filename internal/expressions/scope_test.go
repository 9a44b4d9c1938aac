package expressions

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONSafe(t *testing.T) {
	in := map[string]any{
		"inf":    math.Inf(1),
		"neg":    math.Inf(-1),
		"nan":    math.NaN(),
		"ok":     1.5,
		"nested": map[string]any{"list": []any{math.Inf(1), "x", float32(2)}},
	}

	out := JSONSafeMap(in)
	assert.Nil(t, out["inf"])
	assert.Nil(t, out["neg"])
	assert.Nil(t, out["nan"])
	assert.Equal(t, 1.5, out["ok"])
	assert.Equal(t, map[string]any{"list": []any{nil, "x", float32(2)}}, out["nested"])

	// The input is left untouched.
	assert.True(t, math.IsInf(in["inf"].(float64), 1))

	_, err := json.Marshal(out)
	require.NoError(t, err)
}

func TestJSONSafeMap_Nil(t *testing.T) {
	assert.Nil(t, JSONSafeMap(nil))
	assert.Nil(t, JSONSafe(nil))
}
