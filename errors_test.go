package jsonschema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors_AllErrors(t *testing.T) {
	schema := `{
		"type": "object",
		"required": ["id", "tags"],
		"dependencies": {"card": ["billing"]},
		"properties": {
			"id": {"type": "integer", "minimum": 1},
			"tags": {"type": "array", "items": {"type": "string"}, "uniqueItems": true, "maxItems": 3},
			"mode": {"enum": ["a", "b"]},
			"code": {"pattern": "^[A-Z]+$"},
			"pick": {"oneOf": [{"type": "number"}, {"type": "integer"}]}
		}
	}`
	data := `{"tags": ["x", "y", "x", 1, "z"], "mode": "c", "code": "abc", "pick": 1, "card": 1}`

	want := ValidationErrors{
		{Keyword: "required", SchemaPath: "#/required",
			Params:  map[string]any{"missingProperty": "id"},
			Message: "should have required property 'id'"},
		{Keyword: "dependencies", SchemaPath: "#/dependencies",
			Params:  map[string]any{"property": "card", "missingProperty": "billing", "depsCount": 1, "deps": "billing"},
			Message: "should have property billing when property card is present"},
		{Keyword: "pattern", InstancePath: "/code", SchemaPath: "#/properties/code/pattern",
			Params:  map[string]any{"pattern": "^[A-Z]+$"},
			Message: `should match pattern "^[A-Z]+$"`},
		{Keyword: "enum", InstancePath: "/mode", SchemaPath: "#/properties/mode/enum",
			Params:  map[string]any{"allowedValues": []any{"a", "b"}},
			Message: "should be equal to one of the allowed values"},
		{Keyword: "oneOf", InstancePath: "/pick", SchemaPath: "#/properties/pick/oneOf",
			Params:  map[string]any{"passingSchemas": []int{0, 1}},
			Message: "should match exactly one schema in oneOf"},
		{Keyword: "maxItems", InstancePath: "/tags", SchemaPath: "#/properties/tags/maxItems",
			Params:  map[string]any{"limit": 3.0},
			Message: "should NOT have more than 3 items"},
		{Keyword: "type", InstancePath: "/tags/3", SchemaPath: "#/properties/tags/items/type",
			Params:  map[string]any{"type": "string"},
			Message: "should be string"},
		{Keyword: "uniqueItems", InstancePath: "/tags", SchemaPath: "#/properties/tags/uniqueItems",
			Params:  map[string]any{"i": 2, "j": 0},
			Message: "should NOT have duplicate items (items ## 0 and 2 are identical)"},
	}
	got := validate(t, schema, data, WithAllErrors())
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}

	// Without AllErrors validation stops at the first failure.
	got = validate(t, schema, data)
	if diff := cmp.Diff(want[:1], got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidationErrors_Composites(t *testing.T) {
	ignoreParams := cmpopts.IgnoreFields(ValidationError{}, "Params")
	for _, tc := range []struct {
		name   string
		schema string
		data   string
		want   ValidationErrors
	}{
		{
			name:   "anyOf keeps branch errors",
			schema: `{"anyOf": [{"type": "string"}, {"minimum": 5}]}`,
			data:   `1`,
			want: ValidationErrors{
				{Keyword: "type", SchemaPath: "#/anyOf/0/type", Message: "should be string"},
				{Keyword: "minimum", SchemaPath: "#/anyOf/1/minimum", Message: "should be >= 5"},
				{Keyword: "anyOf", SchemaPath: "#/anyOf", Message: "should match some schema in anyOf"},
			},
		},
		{
			name:   "not",
			schema: `{"not": {"type": "number"}}`,
			data:   `1`,
			want:   ValidationErrors{{Keyword: "not", SchemaPath: "#/not", Message: "should NOT be valid"}},
		},
		{
			name:   "if then",
			schema: `{"if": {"minimum": 10}, "then": {"multipleOf": 5}, "else": {"maximum": 3}}`,
			data:   `12`,
			want: ValidationErrors{
				{Keyword: "multipleOf", SchemaPath: "#/then/multipleOf", Message: "should be multiple of 5"},
				{Keyword: "if", SchemaPath: "#/if", Message: `should match "then" schema`},
			},
		},
		{
			name:   "contains drops item errors",
			schema: `{"contains": {"const": 1}}`,
			data:   `[2, 3]`,
			want:   ValidationErrors{{Keyword: "contains", SchemaPath: "#/contains", Message: "should contain a valid item"}},
		},
		{
			name:   "propertyNames",
			schema: `{"propertyNames": {"maxLength": 2}}`,
			data:   `{"abc": 1}`,
			want: ValidationErrors{
				{Keyword: "maxLength", SchemaPath: "#/propertyNames/maxLength", Message: "should NOT be longer than 2 characters"},
				{Keyword: "propertyNames", SchemaPath: "#/propertyNames", Message: "property name 'abc' is invalid"},
			},
		},
		{
			name:   "false schema",
			schema: `{"properties": {"a": false}}`,
			data:   `{"a": 1}`,
			want:   ValidationErrors{{Keyword: "false schema", InstancePath: "/a", SchemaPath: "#/properties/a", Message: "boolean schema is false"}},
		},
		{
			name:   "additionalItems",
			schema: `{"items": [{}], "additionalItems": false}`,
			data:   `[1, 2]`,
			want:   ValidationErrors{{Keyword: "additionalItems", SchemaPath: "#/additionalItems", Message: "should NOT have more than 1 items"}},
		},
		{
			name:   "exclusive limit",
			schema: `{"exclusiveMinimum": 2, "minimum": 1}`,
			data:   `2`,
			want:   ValidationErrors{{Keyword: "exclusiveMinimum", SchemaPath: "#/exclusiveMinimum", Message: "should be > 2"}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := validate(t, tc.schema, tc.data, WithAllErrors())
			if diff := cmp.Diff(tc.want, got, ignoreParams); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorsText(t *testing.T) {
	assert.Equal(t, "No errors", ErrorsText(nil))

	errs := validate(t, `{"properties": {"a": {"type": "string"}, "b": {"minimum": 2}}}`, `{"a": 1, "b": 1}`, WithAllErrors())
	assert.Equal(t, "data/a should be string, data/b should be >= 2", ErrorsText(errs))
	assert.Equal(t, "body/a should be string\nbody/b should be >= 2",
		ErrorsText(errs, WithDataVar("body"), WithSeparator("\n")))
	assert.Equal(t, ErrorsText(errs), errs.Error())

	var err error = errs
	var target ValidationErrors
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Len(t, target, 2)
}

func TestErrorStrings(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want string
	}{
		{&SchemaError{SchemaPath: "#/maximum", Keyword: "maximum", Message: "maximum should be number"}, "schema error at #/maximum: maximum should be number"},
		{&SchemaError{Message: "schema is invalid", Err: errors.New("data should be object")}, "schema error: schema is invalid: data should be object"},
		{&SchemaError{Err: ErrAsyncSchema}, "schema error: async schema"},
		{&ValidationFailedError{}, "validation failed"},
		{&KeywordError{Keyword: "k", SchemaPath: "#/k", Err: errors.New("boom")}, `keyword "k" at #/k: boom`},
		{&MissingRefError{Ref: "a.json"}, "can't resolve reference a.json"},
		{&MissingRefError{Ref: "a.json", BaseID: "http://x/"}, "can't resolve reference a.json from id http://x/"},
	} {
		assert.Equal(t, tc.want, tc.err.Error())
	}
	require.ErrorIs(t, &SchemaError{Err: ErrAsyncSchema}, ErrAsyncSchema)
}
