package keywords

import (
	"fmt"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// UniqueItemProperties requires that no two object items share a value for
// any of the listed properties.
func UniqueItemProperties() *jsonschema.KeywordDefinition {
	return &jsonschema.KeywordDefinition{
		Type:       []jsonvalue.Type{jsonvalue.Array},
		MetaSchema: map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		Errors:     true,
		Validate: func(kc *jsonschema.KeywordContext, schema, data any) (bool, error) {
			items := data.([]any)
			valid := true
			for _, p := range schema.([]any) {
				prop := p.(string)
				for i := 1; i < len(items); i++ {
					a, ok := items[i].(map[string]any)
					if !ok {
						continue
					}
					av, ok := a[prop]
					if !ok {
						continue
					}
					for j := 0; j < i; j++ {
						b, ok := items[j].(map[string]any)
						if !ok {
							continue
						}
						if bv, ok := b[prop]; ok && jsonvalue.Equal(av, bv) {
							kc.AddError(fmt.Sprintf("should have unique %q (items ## %d and %d are identical)", prop, j, i),
								map[string]any{"property": prop, "i": i, "j": j})
							valid = false
						}
					}
				}
			}
			return valid, nil
		},
	}
}
