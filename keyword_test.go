package jsonschema

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func evenKeyword() *KeywordDefinition {
	return &KeywordDefinition{
		Type:       []jsonvalue.Type{jsonvalue.Number},
		MetaSchema: map[string]any{"type": "boolean"},
		Validate: func(_ *KeywordContext, schema, data any) (bool, error) {
			n, _ := jsonvalue.ToFloat(data)
			even := int64(n)%2 == 0
			return even == schema.(bool), nil
		},
	}
}

func TestKeyword_Validate(t *testing.T) {
	c := newCompiler(t)
	require.NoError(t, c.AddKeyword("even", evenKeyword()))
	v := mustCompile(t, c, `{"properties": {"n": {"even": true}}}`)

	errs, err := v.Validate(decode(t, `{"n": 4}`))
	require.NoError(t, err)
	assert.Nil(t, errs)

	errs, err = v.Validate(decode(t, `{"n": 3}`))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, &ValidationError{
		Keyword:      "even",
		InstancePath: "/n",
		SchemaPath:   "#/properties/n/even",
		Params:       map[string]any{"keyword": "even"},
		Message:      `should pass "even" keyword validation`,
	}, errs[0])

	// Other types are not checked.
	errs, err = v.Validate(decode(t, `{"n": "3"}`))
	require.NoError(t, err)
	assert.Nil(t, errs)

	// The keyword value is checked against the keyword's meta-schema.
	_, err = c.Compile(decode(t, `{"even": "yes"}`))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "even", se.Keyword)
	assert.True(t, strings.HasPrefix(se.Message, "keyword value is invalid: schema should be boolean"), se.Message)
}

func TestKeyword_CustomErrors(t *testing.T) {
	c := newCompiler(t, WithAllErrors())
	require.NoError(t, c.AddKeyword("forbidden", &KeywordDefinition{
		Type:   []jsonvalue.Type{jsonvalue.Object},
		Errors: true,
		Validate: func(kc *KeywordContext, schema, data any) (bool, error) {
			obj := data.(map[string]any)
			ok := true
			for _, k := range schema.([]any) {
				if _, present := obj[k.(string)]; present {
					kc.AddError("should NOT have property "+k.(string), map[string]any{"property": k})
					ok = false
				}
			}
			return ok, nil
		},
	}))
	errs := mustValidate(t, c, `{"forbidden": ["a", "b"]}`, `{"a": 1, "b": 2, "c": 3}`)
	require.Len(t, errs, 2)
	assert.Equal(t, "should NOT have property a", errs[0].Message)
	assert.Equal(t, map[string]any{"property": "b"}, errs[1].Params)
	assert.Equal(t, "#/forbidden", errs[1].SchemaPath)

	// Without Errors the added errors are replaced by the generic one.
	require.NoError(t, c.AddKeyword("quiet", &KeywordDefinition{
		Validate: func(kc *KeywordContext, _, _ any) (bool, error) {
			kc.AddError("dropped", nil)
			return false, nil
		},
	}))
	errs = mustValidate(t, c, `{"quiet": true}`, `1`)
	require.Len(t, errs, 1)
	assert.Equal(t, `should pass "quiet" keyword validation`, errs[0].Message)

	// Errors added by a passing keyword are discarded.
	require.NoError(t, c.AddKeyword("noisy", &KeywordDefinition{
		Errors: true,
		Validate: func(kc *KeywordContext, _, _ any) (bool, error) {
			kc.AddError("ignored", nil)
			return true, nil
		},
	}))
	assert.Nil(t, mustValidate(t, c, `{"noisy": true}`, `1`))
}

func mustValidate(t *testing.T, c *Compiler, schema, data string) ValidationErrors {
	t.Helper()
	errs, err := mustCompile(t, c, schema).Validate(decode(t, data))
	require.NoError(t, err)
	return errs
}

func TestKeyword_Compile(t *testing.T) {
	c := newCompiler(t)
	compiled := 0
	require.NoError(t, c.AddKeyword("divisibleBy", &KeywordDefinition{
		Type:       []jsonvalue.Type{jsonvalue.Integer},
		MetaSchema: map[string]any{"type": "integer", "minimum": 1.0},
		Compile: func(schema any, parent map[string]any, it *KeywordCompileContext) (KeywordFunc, error) {
			compiled++
			d := int64(schema.(float64))
			if parent["type"] != "integer" {
				it.Logger.Warn("divisibleBy without integer type", "schemaPath", it.SchemaPath)
			}
			return func(_ *KeywordContext, data any) (bool, error) {
				return int64(data.(float64))%d == 0, nil
			}, nil
		},
	}))
	v := mustCompile(t, c, `{"type": "integer", "divisibleBy": 3}`)
	assert.Equal(t, 1, compiled)
	for data, ok := range map[string]bool{`9`: true, `10`: false, `"x"`: false} {
		errs, err := v.Validate(decode(t, data))
		require.NoError(t, err)
		assert.Equal(t, ok, errs == nil, data)
	}
	mustCompile(t, c, `{"type": "integer", "divisibleBy": 3}`)
	assert.Equal(t, 1, compiled, "cached validator is reused")

	_, err := c.Compile(decode(t, `{"divisibleBy": 0}`))
	var se *SchemaError
	require.ErrorAs(t, err, &se)

	require.NoError(t, c.AddKeyword("failing", &KeywordDefinition{
		Compile: func(any, map[string]any, *KeywordCompileContext) (KeywordFunc, error) {
			return nil, errors.New("cannot compile")
		},
	}))
	_, err = c.Compile(decode(t, `{"items": {"failing": 1}}`))
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "#/items/failing", se.SchemaPath)
	assert.Contains(t, err.Error(), "cannot compile")
}

func TestKeyword_Macro(t *testing.T) {
	c := newCompiler(t)
	require.NoError(t, c.AddKeyword("between", &KeywordDefinition{
		Type: []jsonvalue.Type{jsonvalue.Number},
		Macro: func(schema any, _ map[string]any, _ *KeywordCompileContext) (any, error) {
			b := schema.([]any)
			return map[string]any{"minimum": b[0], "maximum": b[1]}, nil
		},
	}))
	v := mustCompile(t, c, `{"between": [1, 3]}`)
	errs, err := v.Validate(2.0)
	require.NoError(t, err)
	assert.Nil(t, errs)

	errs, err = v.Validate(5.0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "maximum", errs[0].Keyword)
	assert.Equal(t, "#/between/maximum", errs[0].SchemaPath)
	assert.Equal(t, "should be <= 3", errs[0].Message)

	// Macros may expand to schemas using other macros and references.
	require.NoError(t, c.AddKeyword("positiveBetween", &KeywordDefinition{
		Macro: func(schema any, _ map[string]any, _ *KeywordCompileContext) (any, error) {
			return map[string]any{"allOf": []any{
				map[string]any{"$ref": "#/definitions/positive"},
				map[string]any{"between": schema},
			}}, nil
		},
	}))
	v = mustCompile(t, c, `{"definitions": {"positive": {"exclusiveMinimum": 0}}, "positiveBetween": [-5, 5]}`)
	errs, err = v.Validate(-1.0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "#/definitions/positive/exclusiveMinimum", errs[0].SchemaPath)
}

func TestKeyword_MacroMatchesExpansion(t *testing.T) {
	c := newCompiler(t, WithAllErrors())
	require.NoError(t, c.AddKeyword("str", &KeywordDefinition{
		Macro: func(any, map[string]any, *KeywordCompileContext) (any, error) {
			return map[string]any{"type": "string"}, nil
		},
	}))
	pairs := [][2]string{
		{`{"str": true}`, `{"type": "string"}`},
		{`{"properties": {"a": {"str": true}}}`, `{"properties": {"a": {"type": "string"}}}`},
		{`{"items": {"str": true, "maxLength": 1}}`, `{"items": {"type": "string", "maxLength": 1}}`},
	}
	data := []string{`"x"`, `"xy"`, `1`, `null`, `{}`, `{"a": "x"}`, `{"a": 1}`, `[]`, `["x", 2, "yz"]`}
	for _, p := range pairs {
		macro, direct := mustCompile(t, c, p[0]), mustCompile(t, c, p[1])
		for _, d := range data {
			got, err := macro.Validate(decode(t, d))
			require.NoError(t, err)
			want, err := direct.Validate(decode(t, d))
			require.NoError(t, err)
			require.Len(t, got, len(want), "%s %s", p[0], d)
			for i := range want {
				assert.Equal(t, want[i].Keyword, got[i].Keyword)
				assert.Equal(t, want[i].InstancePath, got[i].InstancePath)
				assert.Equal(t, want[i].Message, got[i].Message)
				assert.Equal(t, want[i].Params, got[i].Params)
			}
		}
	}
}

func TestKeyword_Inline(t *testing.T) {
	c := newCompiler(t, WithAllErrors())
	require.NoError(t, c.AddKeyword("eachValue", &KeywordDefinition{
		Type:   []jsonvalue.Type{jsonvalue.Object},
		Errors: true,
		Inline: func(schema any, _ map[string]any, it *KeywordCompileContext) (KeywordFunc, error) {
			sub, err := it.Subschema(schema)
			if err != nil {
				return nil, err
			}
			return func(kc *KeywordContext, data any) (bool, error) {
				ok := true
				obj := data.(map[string]any)
				for _, k := range jsonvalue.SortedKeys(obj) {
					if !kc.Check(sub, obj[k]) {
						ok = false
					}
				}
				return ok, nil
			}, nil
		},
	}))
	errs := mustValidate(t, c, `{"eachValue": {"type": "string"}}`, `{"a": "x", "b": 1, "c": true}`)
	require.Len(t, errs, 2)
	assert.Equal(t, "type", errs[0].Keyword)
	assert.Equal(t, "#/eachValue/type", errs[0].SchemaPath)

	_, err := c.Compile(decode(t, `{"eachValue": {"type": 7}}`))
	require.Error(t, err)
}

func TestKeyword_Modifying(t *testing.T) {
	trim := func(modifying bool) *KeywordDefinition {
		return &KeywordDefinition{
			Type:      []jsonvalue.Type{jsonvalue.String},
			Modifying: modifying,
			Validate: func(kc *KeywordContext, _, data any) (bool, error) {
				return true, kc.Set(strings.TrimSpace(data.(string)))
			},
		}
	}
	c := newCompiler(t)
	require.NoError(t, c.AddKeyword("trim", trim(true)))
	// Custom keywords run after the built-in ones of their type; allOf
	// orders them explicitly.
	v := mustCompile(t, c, `{"properties": {"name": {"allOf": [{"trim": true}, {"minLength": 2}]}}}`)
	out, errs, err := v.ValidateIn(Location{}, decode(t, `{"name": "  ab  "}`))
	require.NoError(t, err)
	assert.Nil(t, errs)
	assert.Equal(t, map[string]any{"name": "ab"}, out)

	_, errs, err = v.ValidateIn(Location{}, decode(t, `{"name": " a "}`))
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "minLength", errs[0].Keyword)
	assert.Equal(t, "/name", errs[0].InstancePath)

	c = newCompiler(t)
	require.NoError(t, c.AddKeyword("trim", trim(false)))
	_, err = mustCompile(t, c, `{"trim": true}`).Validate(" a ")
	var ke *KeywordError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "trim", ke.Keyword)
	assert.Equal(t, "#/trim", ke.SchemaPath)
}

func TestKeyword_Error(t *testing.T) {
	errBackend := errors.New("backend down")
	c := newCompiler(t, WithAllErrors())
	require.NoError(t, c.AddKeyword("lookup", &KeywordDefinition{
		Validate: func(*KeywordContext, any, any) (bool, error) { return false, errBackend },
	}))
	errs, err := mustCompile(t, c, `{"properties": {"a": {"lookup": true}}, "required": ["b"]}`).Validate(decode(t, `{"a": 1}`))
	require.ErrorIs(t, err, errBackend)
	assert.Nil(t, errs)
	var ke *KeywordError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "#/properties/a/lookup", ke.SchemaPath)
	assert.Equal(t, `keyword "lookup" at #/properties/a/lookup: backend down`, err.Error())
}

func TestKeyword_Context(t *testing.T) {
	c := newCompiler(t)
	type seen struct {
		path   string
		key    any
		parent any
		root   any
	}
	var got []seen
	require.NoError(t, c.AddKeyword("spy", &KeywordDefinition{
		Validate: func(kc *KeywordContext, _, _ any) (bool, error) {
			require.NotNil(t, kc.Context())
			got = append(got, seen{kc.InstancePath(), kc.Key(), kc.ParentData(), kc.RootData()})
			return true, nil
		},
	}))
	var composite []bool
	require.NoError(t, c.AddKeyword("where", &KeywordDefinition{
		Compile: func(_ any, _ map[string]any, it *KeywordCompileContext) (KeywordFunc, error) {
			composite = append(composite, it.Composite)
			return nil, nil
		},
	}))

	data := decode(t, `{"list": [10, 20]}`)
	mustValidate(t, c, `{"spy": 1, "properties": {"list": {"items": {"spy": 1}}}}`, mustJSON(t, data))
	// The root keyword runs after the object keywords.
	require.Len(t, got, 3)
	assert.Equal(t, "/list/1", got[1].path)
	assert.Equal(t, 1, got[1].key)
	assert.Equal(t, []any{10.0, 20.0}, got[1].parent)
	assert.Equal(t, data, got[1].root)
	assert.Equal(t, seen{"", nil, nil, data}, got[2])

	mustCompile(t, c, `{"where": 1, "anyOf": [{"where": 2}]}`)
	assert.Equal(t, []bool{true, false}, composite)
}

func TestKeyword_ValidOverride(t *testing.T) {
	c := newCompiler(t)
	valid := true
	calls := 0
	require.NoError(t, c.AddKeyword("audit", &KeywordDefinition{
		Valid: &valid,
		Validate: func(*KeywordContext, any, any) (bool, error) {
			calls++
			return false, nil
		},
	}))
	assert.Nil(t, mustValidate(t, c, `{"audit": "x"}`, `1`))
	assert.Equal(t, 1, calls)
}

func TestKeyword_Dependencies(t *testing.T) {
	c := newCompiler(t)
	require.NoError(t, c.AddKeyword("unit", &KeywordDefinition{
		Dependencies: []string{"type"},
		Validate:     func(*KeywordContext, any, any) (bool, error) { return true, nil },
	}))
	_, err := c.Compile(decode(t, `{"unit": "m"}`))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "parent schema must have all required keywords: [type]", se.Message)
	mustCompile(t, c, `{"type": "number", "unit": "m"}`)
}

func TestKeyword_Data(t *testing.T) {
	c := newCompiler(t, WithData())
	require.NoError(t, c.AddKeyword("lessThan", &KeywordDefinition{
		Type:       []jsonvalue.Type{jsonvalue.Number},
		MetaSchema: map[string]any{"type": "number"},
		Data:       true,
		Validate: func(_ *KeywordContext, schema, data any) (bool, error) {
			return data.(float64) < schema.(float64), nil
		},
	}))
	v := mustCompile(t, c, `{"properties": {"lo": {"lessThan": {"$data": "1/hi"}}, "cap": {"lessThan": 100}}}`)
	for data, ok := range map[string]bool{
		`{"lo": 1, "hi": 2}`:   true,
		`{"lo": 3, "hi": 2}`:   false,
		`{"lo": 3}`:            true,
		`{"lo": 1, "hi": "x"}`: false,
		`{"cap": 100}`:         false,
	} {
		errs, err := v.Validate(decode(t, data))
		require.NoError(t, err)
		assert.Equal(t, ok, errs == nil, data)
	}
}

func TestKeyword_Async(t *testing.T) {
	c := newCompiler(t)
	require.NoError(t, c.AddKeyword("remote", &KeywordDefinition{
		Async:    true,
		Validate: func(*KeywordContext, any, any) (bool, error) { return true, nil },
	}))
	_, err := c.Compile(decode(t, `{"remote": true}`))
	require.ErrorIs(t, err, ErrAsyncSchema)
}

func TestAddKeyword_Rejects(t *testing.T) {
	ok := func(*KeywordContext, any, any) (bool, error) { return true, nil }
	c := newCompiler(t)
	for name, tc := range map[string]struct {
		keyword string
		def     *KeywordDefinition
	}{
		"bad name":     {"1st", &KeywordDefinition{Validate: ok}},
		"nil":          {"k", nil},
		"no function":  {"k", &KeywordDefinition{}},
		"two":          {"k", &KeywordDefinition{Validate: ok, Macro: func(any, map[string]any, *KeywordCompileContext) (any, error) { return true, nil }}},
		"unknown type": {"k", &KeywordDefinition{Type: []jsonvalue.Type{"date"}, Validate: ok}},
		"data":         {"k", &KeywordDefinition{Data: true, Compile: func(any, map[string]any, *KeywordCompileContext) (KeywordFunc, error) { return nil, nil }}},
		"meta value":   {"k", &KeywordDefinition{MetaSchema: 5.0, Validate: ok}},
		"meta invalid": {"k", &KeywordDefinition{MetaSchema: map[string]any{"type": 5.0}, Validate: ok}},
	} {
		assert.Error(t, c.AddKeyword(tc.keyword, tc.def), name)
	}
	require.ErrorIs(t, c.AddKeyword("maximum", &KeywordDefinition{Validate: ok}), ErrKeywordExists)
	require.ErrorIs(t, c.AddKeyword("title", &KeywordDefinition{Validate: ok}), ErrKeywordExists)
	require.NoError(t, c.AddKeyword("x_ok", &KeywordDefinition{Validate: ok}))
	require.ErrorIs(t, c.AddKeyword("x_ok", &KeywordDefinition{Validate: ok}), ErrKeywordExists)
}

func TestKeyword_GetAndRemove(t *testing.T) {
	c := newCompiler(t, WithStrictKeywords(StrictError))
	def := evenKeyword()
	require.NoError(t, c.AddKeyword("even", def))

	got, ok := c.GetKeyword("even")
	assert.True(t, ok)
	assert.Same(t, def, got)
	got, ok = c.GetKeyword("minimum")
	assert.True(t, ok)
	assert.Nil(t, got)
	_, ok = c.GetKeyword("odd")
	assert.False(t, ok)

	before := mustCompile(t, c, `{"even": true}`)
	require.NoError(t, c.RemoveKeyword("even"))
	require.Error(t, c.RemoveKeyword("even"))
	require.Error(t, c.RemoveKeyword("maximum"))

	_, err := c.Compile(decode(t, `{"even": false}`))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "unknown keyword: even", se.Message)

	// Validators compiled before removal keep the keyword.
	errs, err := before.Validate(3.0)
	require.NoError(t, err)
	assert.Len(t, errs, 1)
}
