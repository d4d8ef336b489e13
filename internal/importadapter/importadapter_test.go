package importadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitKeyValueColon(t *testing.T) {
	name, value, ok := splitKeyValue(`db_password: "hunter2"`)
	require.True(t, ok)
	assert.Equal(t, "db_password", name)
	assert.Equal(t, "hunter2", value)
}

func TestSplitKeyValueEquals(t *testing.T) {
	name, value, ok := splitKeyValue("API_KEY=abc123")
	require.True(t, ok)
	assert.Equal(t, "API_KEY", name)
	assert.Equal(t, "abc123", value)
}

func TestSplitKeyValueRejectsPlainLine(t *testing.T) {
	_, _, ok := splitKeyValue("not a kv line")
	assert.False(t, ok, "expected a line without separator to be rejected")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "secret", firstLine("secret\nmetadata line"))
	assert.Equal(t, "onlyline", firstLine("onlyline"))
}
