package jsonschema

import (
	"math"
	"strconv"
	"strings"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// coercionTargets keeps the schema types a value may be coerced to, in
// schema order.
func coercionTargets(types []jsonvalue.Type, mode CoerceMode) []jsonvalue.Type {
	var out []jsonvalue.Type
	for _, t := range types {
		switch t {
		case jsonvalue.String, jsonvalue.Number, jsonvalue.Integer, jsonvalue.Boolean, jsonvalue.Null:
			out = append(out, t)
		case jsonvalue.Array:
			if mode == CoerceArray {
				out = append(out, t)
			}
		}
	}
	return out
}

// coerce converts v to the first target type that accepts it. In array mode a
// one-item array is unwrapped first.
func coerce(v any, targets []jsonvalue.Type, mode CoerceMode, match func(any) bool) (any, bool) {
	if mode == CoerceArray {
		if a, ok := v.([]any); ok && len(a) == 1 {
			if match(a[0]) {
				return a[0], true
			}
			v = a[0]
		}
	}
	for _, t := range targets {
		if out, ok := coerceTo(v, t); ok {
			return out, true
		}
	}
	return nil, false
}

func coerceTo(v any, t jsonvalue.Type) (any, bool) {
	vt := jsonvalue.TypeOf(v)
	switch t {
	case jsonvalue.String:
		switch vt {
		case jsonvalue.Number, jsonvalue.Integer:
			f, _ := jsonvalue.ToFloat(v)
			return strconv.FormatFloat(f, 'f', -1, 64), true
		case jsonvalue.Boolean:
			return strconv.FormatBool(v.(bool)), true
		case jsonvalue.Null:
			return "", true
		}
	case jsonvalue.Number, jsonvalue.Integer:
		var f float64
		switch vt {
		case jsonvalue.Boolean:
			if v.(bool) {
				f = 1
			}
		case jsonvalue.Null:
		case jsonvalue.String:
			n, ok := parseNumber(v.(string))
			if !ok {
				return nil, false
			}
			f = n
		default:
			return nil, false
		}
		if t == jsonvalue.Integer && !jsonvalue.IsIntegral(f) {
			return nil, false
		}
		return f, true
	case jsonvalue.Boolean:
		switch x := v.(type) {
		case nil:
			return false, true
		case string:
			switch x {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		default:
			if f, ok := jsonvalue.ToFloat(v); ok {
				switch f {
				case 0:
					return false, true
				case 1:
					return true, true
				}
			}
		}
	case jsonvalue.Null:
		switch x := v.(type) {
		case string:
			if x == "" {
				return nil, true
			}
		case bool:
			if !x {
				return nil, true
			}
		default:
			if f, ok := jsonvalue.ToFloat(v); ok && f == 0 {
				return nil, true
			}
		}
	case jsonvalue.Array:
		switch vt {
		case jsonvalue.String, jsonvalue.Number, jsonvalue.Integer, jsonvalue.Boolean, jsonvalue.Null:
			return []any{v}, true
		}
	}
	return nil, false
}

// parseNumber accepts decimal numbers surrounded by white space. An empty
// string is not a number.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	lower := strings.ToLower(s)
	if strings.Contains(lower, "inf") || strings.Contains(lower, "nan") || strings.HasPrefix(lower, "0x") {
		return 0, false
	}
	return f, true
}
