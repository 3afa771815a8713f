package llmgateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutermostJSONObjectStripsSurroundingProse(t *testing.T) {
	block, err := outermostJSONObject("Here is the answer:\n{\"a\": 1, \"b\": {\"c\": 2}}\nHope that helps!")
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1, "b": {"c": 2}}`, block)
}

func TestOutermostJSONObjectNoBraceErrors(t *testing.T) {
	_, err := outermostJSONObject("no json here")
	assert.Error(t, err)
}

func TestOutermostJSONObjectUnterminatedErrors(t *testing.T) {
	_, err := outermostJSONObject("{\"a\": 1")
	assert.Error(t, err)
}

func TestExtractAndValidateRequiresKeys(t *testing.T) {
	_, err := extractAndValidate(`{"a": 1}`, []string{"a", "b"})
	assert.Error(t, err)

	parsed, err := extractAndValidate(`{"a": 1, "b": 2}`, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), parsed["a"])
}

func TestResolveModelUsesAliasOrPassesThrough(t *testing.T) {
	g := &Gateway{aliases: map[string]string{"chat": "gpt-4o"}}
	assert.Equal(t, "gpt-4o", g.resolveModel("chat"))
	assert.Equal(t, "some-deployment", g.resolveModel("some-deployment"))
}
