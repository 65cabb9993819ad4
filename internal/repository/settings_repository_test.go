package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeObjects(t *testing.T) {
	parse := func(s string) map[string]interface{} {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(s), &m))
		return m
	}

	base := parse(`{"ui":{"theme":"light","fontSize":14},"lang":"de","beta":true}`)
	patch := parse(`{"ui":{"theme":"dark"},"beta":null,"notify":{"slack":true}}`)

	got := mergeObjects(base, patch)

	// Nested objects merge field by field.
	ui := got["ui"].(map[string]interface{})
	assert.Equal(t, "dark", ui["theme"])
	assert.Equal(t, float64(14), ui["fontSize"])

	// Untouched keys survive, nulls delete, new subtrees land whole.
	assert.Equal(t, "de", got["lang"])
	_, hasBeta := got["beta"]
	assert.False(t, hasBeta)
	assert.Equal(t, map[string]interface{}{"slack": true}, got["notify"])
}

func TestMergeObjectsScalarReplacesObject(t *testing.T) {
	base := map[string]interface{}{"ui": map[string]interface{}{"theme": "light"}}
	patch := map[string]interface{}{"ui": "compact"}
	got := mergeObjects(base, patch)
	assert.Equal(t, "compact", got["ui"])
}
