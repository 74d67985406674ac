package keywords

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbindings/jsonschema-go"
)

func compiler(t *testing.T, names ...string) *jsonschema.Compiler {
	t.Helper()
	c, err := jsonschema.New(jsonschema.WithAllErrors())
	require.NoError(t, err)
	require.NoError(t, Add(c, names...))
	return c
}

func check(t *testing.T, c *jsonschema.Compiler, schema, data string) jsonschema.ValidationErrors {
	t.Helper()
	s, err := jsonschema.DecodeJSON([]byte(schema))
	require.NoError(t, err)
	d, err := jsonschema.DecodeJSON([]byte(data))
	require.NoError(t, err)
	v, err := c.Compile(s)
	require.NoError(t, err)
	errs, err := v.Validate(d)
	require.NoError(t, err)
	return errs
}

func compileErr(t *testing.T, c *jsonschema.Compiler, schema string) error {
	t.Helper()
	s, err := jsonschema.DecodeJSON([]byte(schema))
	require.NoError(t, err)
	_, err = c.Compile(s)
	return err
}

func TestAdd(t *testing.T) {
	assert.Equal(t, []string{"exclusiveRange", "expr", "range", "regexp", "typeof", "uniqueItemProperties"}, Names())

	c := compiler(t)
	for _, n := range Names() {
		_, ok := c.GetKeyword(n)
		assert.True(t, ok, n)
	}

	c = compiler(t, "range")
	_, ok := c.GetKeyword("exclusiveRange")
	assert.True(t, ok)
	_, ok = c.GetKeyword("expr")
	assert.False(t, ok)

	require.Error(t, Add(c, "nope"))
	err := Add(c, "range")
	require.True(t, errors.Is(err, jsonschema.ErrKeywordExists), "%v", err)
}

func TestRange(t *testing.T) {
	c := compiler(t, "range")
	assert.Nil(t, check(t, c, `{"range": [1, 3]}`, `1`))
	assert.Nil(t, check(t, c, `{"range": [1, 3]}`, `"not a number"`))

	errs := check(t, c, `{"range": [1, 3]}`, `4`)
	require.Len(t, errs, 1)
	assert.Equal(t, "maximum", errs[0].Keyword)
	assert.Equal(t, "#/range/maximum", errs[0].SchemaPath)

	errs = check(t, c, `{"range": [1, 3], "exclusiveRange": true}`, `1`)
	require.Len(t, errs, 1)
	assert.Equal(t, "exclusiveMinimum", errs[0].Keyword)
	assert.Equal(t, "should be > 1", errs[0].Message)

	require.Error(t, compileErr(t, c, `{"range": [3, 1]}`))
	require.Error(t, compileErr(t, c, `{"range": [2, 2], "exclusiveRange": true}`))
	require.Error(t, compileErr(t, c, `{"range": [1]}`))
	require.Error(t, compileErr(t, c, `{"exclusiveRange": true}`))
}

func TestRegexp(t *testing.T) {
	c := compiler(t, "regexp")
	assert.Nil(t, check(t, c, `{"regexp": "/^ab/i"}`, `"ABc"`))
	assert.Nil(t, check(t, c, `{"regexp": {"pattern": "a.b", "flags": "s"}}`, `"a\nb"`))
	assert.Nil(t, check(t, c, `{"regexp": "^[0-9]+$"}`, `12`))

	errs := check(t, c, `{"regexp": "/^ab/"}`, `"ABc"`)
	require.Len(t, errs, 1)
	assert.Equal(t, `should pass "regexp" keyword validation`, errs[0].Message)

	require.Error(t, compileErr(t, c, `{"regexp": "/abc"}`))
	require.Error(t, compileErr(t, c, `{"regexp": "/abc/q"}`))
	require.Error(t, compileErr(t, c, `{"regexp": "(["}`))
	require.Error(t, compileErr(t, c, `{"regexp": {"flags": "i"}}`))
}

func TestUniqueItemProperties(t *testing.T) {
	c := compiler(t, "uniqueItemProperties")
	schema := `{"uniqueItemProperties": ["id", "name"]}`
	assert.Nil(t, check(t, c, schema, `[{"id": 1, "name": "a"}, {"id": 2, "name": "b"}, 3, {"other": 1}]`))

	errs := check(t, c, schema, `[{"id": 1, "name": "a"}, {"id": 2, "name": "a"}, {"id": 1.0}]`)
	require.Len(t, errs, 2)
	assert.Equal(t, `should have unique "id" (items ## 0 and 2 are identical)`, errs[0].Message)
	assert.Equal(t, map[string]any{"property": "name", "i": 1, "j": 0}, errs[1].Params)
}

func TestExpr(t *testing.T) {
	c := compiler(t, "expr")
	schema := `{"expr": "data.min <= data.max"}`
	assert.Nil(t, check(t, c, schema, `{"min": 1, "max": 2}`))
	errs := check(t, c, schema, `{"min": 3, "max": 2}`)
	require.Len(t, errs, 1)
	assert.Equal(t, "expr", errs[0].Keyword)

	fields := `{"expr": "data.limits.max > data.limits.min && len(data.tags) == 2 && data.tags[1] == 'b'"}`
	assert.Nil(t, check(t, c, fields, `{"limits": {"min": 1, "max": 2}, "tags": ["a", "b"]}`))
	assert.Len(t, check(t, c, fields, `{"limits": {"min": 2, "max": 2}, "tags": ["a", "b"]}`), 1)

	nested :=`{"properties": {"a": {"expr": "key == 'a' && parent.b == 2 && path == '/a' && jsonType(root) == 'object'"}}}`
	assert.Nil(t, check(t, c, nested, `{"a": 1, "b": 2}`))
	assert.Len(t, check(t, c, nested, `{"a": 1, "b": 3}`), 1)

	require.Error(t, compileErr(t, c, `{"expr": "data.min <="}`))
	require.Error(t, compileErr(t, c, `{"expr": ""}`))

	s, err := jsonschema.DecodeJSON([]byte(`{"expr": "data.a.b == 1"}`))
	require.NoError(t, err)
	v, err := c.Compile(s)
	require.NoError(t, err)
	_, err = v.Validate(map[string]any{"a": 1.0})
	var ke *jsonschema.KeywordError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "expr", ke.Keyword)
}

func TestTypeof(t *testing.T) {
	c := compiler(t, "typeof")
	assert.Nil(t, check(t, c, `{"typeof": "map"}`, `{}`))
	assert.Nil(t, check(t, c, `{"typeof": ["float64", "nil"]}`, `null`))
	assert.Nil(t, check(t, c, `{"properties": {"s": {"typeof": "string"}}}`, `{"s": "x"}`))
	assert.Len(t, check(t, c, `{"typeof": "slice"}`, `"x"`), 1)
	require.Error(t, compileErr(t, c, `{"typeof": 5}`))
}
