package resolve

import "math"

// InlineMode selects how InlineRef decides.
type InlineMode int

const (
	// InlineNoRefs inlines any target whose subtree contains no $ref.
	InlineNoRefs InlineMode = iota
	// InlineNever always compiles targets as separate validators.
	InlineNever
	// InlineLimit inlines targets whose weighted keyword count is at most Limit.
	InlineLimit
)

// InlinePolicy controls whether a resolved $ref target is compiled in place.
type InlinePolicy struct {
	Mode  InlineMode
	Limit int
}

// simpleKeywords cost 1 each regardless of their value.
var simpleKeywords = map[string]bool{
	"type": true, "format": true, "pattern": true,
	"maxLength": true, "minLength": true,
	"maxProperties": true, "minProperties": true,
	"maxItems": true, "minItems": true,
	"maximum": true, "minimum": true,
	"uniqueItems": true, "multipleOf": true,
	"required": true, "enum": true,
}

// InlineRef reports whether schema may be compiled in place of the $ref that
// targets it. Boolean schemas are always inlined.
func InlineRef(schema any, p InlinePolicy) bool {
	if _, ok := schema.(bool); ok {
		return true
	}
	switch p.Mode {
	case InlineNever:
		return false
	case InlineLimit:
		return countKeywords(schema) <= float64(p.Limit)
	default:
		return !containsRef(schema)
	}
}

func containsRef(v any) bool {
	switch x := v.(type) {
	case map[string]any:
		if _, ok := x["$ref"]; ok {
			return true
		}
		for _, e := range x {
			if containsRef(e) {
				return true
			}
		}
	case []any:
		for _, e := range x {
			if containsRef(e) {
				return true
			}
		}
	}
	return false
}

func countKeywords(v any) float64 {
	switch x := v.(type) {
	case map[string]any:
		var n float64
		for k, e := range x {
			if k == "$ref" {
				return math.Inf(1)
			}
			if simpleKeywords[k] {
				n++
				continue
			}
			n += 1 + countKeywords(e)
			if math.IsInf(n, 1) {
				return n
			}
		}
		return n
	case []any:
		var n float64
		for _, e := range x {
			n += countKeywords(e)
			if math.IsInf(n, 1) {
				return n
			}
		}
		return n
	}
	return 0
}
