package keywords

import (
	"reflect"

	"github.com/openbindings/jsonschema-go"
)

// Typeof checks the Go kind of the decoded value: "string", "float64",
// "int", "bool", "map", "slice", or "nil" for null. The value is one name or
// an array of names.
func Typeof() *jsonschema.KeywordDefinition {
	return &jsonschema.KeywordDefinition{
		MetaSchema: map[string]any{
			"anyOf": []any{
				map[string]any{"type": "string"},
				map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		Validate: func(_ *jsonschema.KeywordContext, schema, data any) (bool, error) {
			kind := kindOf(data)
			switch x := schema.(type) {
			case string:
				return x == kind, nil
			case []any:
				for _, k := range x {
					if k == kind {
						return true, nil
					}
				}
			}
			return false, nil
		},
	}
}

func kindOf(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).Kind().String()
}
