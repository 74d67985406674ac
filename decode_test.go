package jsonschema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	v, err := DecodeJSON([]byte(` {"a": [1, "x", null]} `))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{1.0, "x", nil}}, v)

	_, err = DecodeJSON([]byte(`{"a": 1} {"b": 2}`))
	require.ErrorContains(t, err, "trailing data")

	_, err = DecodeJSON([]byte(`{"a": `))
	require.Error(t, err)
}

func TestDecodeFile(t *testing.T) {
	y := []byte("type: object\nrequired: [name]\nproperties:\n  age: {minimum: 0}\n")
	v, err := DecodeFile("schema.YML", y)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"type":       "object",
		"required":   []any{"name"},
		"properties": map[string]any{"age": map[string]any{"minimum": 0}},
	}, v)

	_, err = DecodeFile("schema.json", y)
	require.Error(t, err)

	v, err = DecodeFile("schema", []byte(`true`))
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
