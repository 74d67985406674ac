package keywords

import (
	"fmt"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// Range is {"range": [min, max]}, expanded to minimum and maximum, or to
// exclusiveMinimum and exclusiveMaximum when "exclusiveRange" is true.
func Range() *jsonschema.KeywordDefinition {
	return &jsonschema.KeywordDefinition{
		Type: []jsonvalue.Type{jsonvalue.Number},
		MetaSchema: map[string]any{
			"type":            "array",
			"items":           []any{map[string]any{"type": "number"}, map[string]any{"type": "number"}},
			"minItems":        2,
			"additionalItems": false,
		},
		Macro: func(schema any, parent map[string]any, _ *jsonschema.KeywordCompileContext) (any, error) {
			bounds := schema.([]any)
			lo, _ := jsonvalue.ToFloat(bounds[0])
			hi, _ := jsonvalue.ToFloat(bounds[1])
			exclusive := parent["exclusiveRange"] == true
			if lo > hi || (exclusive && lo == hi) {
				return nil, fmt.Errorf("there are no numbers in range [%v, %v]", bounds[0], bounds[1])
			}
			if exclusive {
				return map[string]any{"exclusiveMinimum": bounds[0], "exclusiveMaximum": bounds[1]}, nil
			}
			return map[string]any{"minimum": bounds[0], "maximum": bounds[1]}, nil
		},
	}
}

// ExclusiveRange modifies "range" and validates nothing itself.
func ExclusiveRange() *jsonschema.KeywordDefinition {
	valid := true
	return &jsonschema.KeywordDefinition{
		Type:         []jsonvalue.Type{jsonvalue.Number},
		MetaSchema:   map[string]any{"type": "boolean"},
		Dependencies: []string{"range"},
		Valid:        &valid,
		Validate: func(*jsonschema.KeywordContext, any, any) (bool, error) {
			return true, nil
		},
	}
}
