package resolve

import (
	"fmt"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// IDKeyword selects which keyword declares a schema identifier.
type IDKeyword int

const (
	// DollarID uses "$id" (draft-06 and later).
	DollarID IDKeyword = iota
	// LegacyID uses "id" (draft-04).
	LegacyID
	// AutoID accepts either, and fails when both are present with different values.
	AutoID
)

// Of returns the identifier declared by schema, or "".
func (k IDKeyword) Of(schema any) (string, error) {
	m, ok := schema.(map[string]any)
	if !ok {
		return "", nil
	}
	dollar, _ := m["$id"].(string)
	legacy, _ := m["id"].(string)
	switch k {
	case DollarID:
		return dollar, nil
	case LegacyID:
		return legacy, nil
	default:
		if dollar != "" && legacy != "" && dollar != legacy {
			return "", fmt.Errorf("schema $id %q is different from id %q", dollar, legacy)
		}
		if dollar != "" {
			return dollar, nil
		}
		return legacy, nil
	}
}

// Local locates a sub-schema that declares an identifier.
type Local struct {
	Schema any
	// Pointer is the JSON Pointer of Schema from its document root.
	Pointer string
	// BaseID is the base URI in effect at Schema (its own resolved id).
	BaseID string
}

// Keyword classes used when walking a schema document. Only schema positions
// are visited, so identifiers inside enum/const/default values or property
// names are never taken as scope changes.
var (
	schemaKeywords = map[string]bool{
		"additionalItems": true, "items": true, "contains": true,
		"additionalProperties": true, "propertyNames": true,
		"not": true, "if": true, "then": true, "else": true,
	}
	schemaArrayKeywords = map[string]bool{
		"items": true, "allOf": true, "anyOf": true, "oneOf": true,
	}
	schemaMapKeywords = map[string]bool{
		"definitions": true, "properties": true, "patternProperties": true, "dependencies": true,
	}
)

// IndexIDs walks schema once and returns every declared identifier, keyed by
// its normalized absolute form. Two different schema bodies declaring the same
// identifier is an error; the same body reached twice is not.
func IndexIDs(schema any, baseID string, kw IDKeyword) (map[string]Local, error) {
	locals := map[string]Local{}
	err := walkSchemas(schema, "", baseID, kw, func(s any, ptr, base string, declared bool) error {
		if !declared {
			return nil
		}
		if prev, ok := locals[base]; ok {
			if !jsonvalue.Equal(prev.Schema, s) {
				return fmt.Errorf("id %q resolves to more than one schema", base)
			}
			return nil
		}
		locals[base] = Local{Schema: s, Pointer: ptr, BaseID: base}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return locals, nil
}

type visitFunc func(schema any, pointer, baseID string, declaresID bool) error

func walkSchemas(schema any, ptr, baseID string, kw IDKeyword, visit visitFunc) error {
	m, ok := schema.(map[string]any)
	if !ok {
		return nil
	}
	id, err := kw.Of(m)
	if err != nil {
		return err
	}
	declared := id != ""
	if declared {
		baseID = ResolveURL(baseID, id)
	}
	if err := visit(m, ptr, baseID, declared); err != nil {
		return err
	}
	for _, key := range jsonvalue.SortedKeys(m) {
		v := m[key]
		kptr := jsonvalue.AppendToken(ptr, key)
		if schemaArrayKeywords[key] {
			if arr, ok := v.([]any); ok {
				for i, item := range arr {
					if err := walkSchemas(item, jsonvalue.AppendIndex(kptr, i), baseID, kw, visit); err != nil {
						return err
					}
				}
				continue
			}
		}
		if schemaKeywords[key] {
			if err := walkSchemas(v, kptr, baseID, kw, visit); err != nil {
				return err
			}
			continue
		}
		if schemaMapKeywords[key] {
			sub, ok := v.(map[string]any)
			if !ok {
				continue
			}
			for _, name := range jsonvalue.SortedKeys(sub) {
				if err := walkSchemas(sub[name], jsonvalue.AppendToken(kptr, name), baseID, kw, visit); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
