// Package jsonvalue holds helpers for decoded JSON instances: JSON type names,
// numeric normalization, deep equality and deep copies.
//
// Values are expected in the shape produced by encoding/json (map[string]any,
// []any, string, bool, nil, float64 or json.Number) or by gopkg.in/yaml.v3
// (which also yields Go integer types). Both shapes are accepted everywhere.
package jsonvalue

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"unsafe"
)

// Type is a JSON Schema instance type name.
type Type string

const (
	Null    Type = "null"
	Boolean Type = "boolean"
	Object  Type = "object"
	Array   Type = "array"
	Number  Type = "number"
	Integer Type = "integer"
	String  Type = "string"
)

// Types lists every known top-level JSON Schema type.
var Types = []Type{Null, Boolean, Object, Array, Number, Integer, String}

// IsType reports whether s names a known JSON Schema type.
func IsType(s string) bool {
	for _, t := range Types {
		if string(t) == s {
			return true
		}
	}
	return false
}

// TypeOf returns the JSON type of v. Numbers are reported as Number even when
// integral; use Is to check for Integer. Unknown Go types return "".
func TypeOf(v any) Type {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Boolean
	case string:
		return String
	case map[string]any:
		return Object
	case []any:
		return Array
	}
	if _, ok := ToFloat(v); ok {
		return Number
	}
	return ""
}

// Is reports whether v is an instance of t.
func Is(v any, t Type) bool {
	switch t {
	case Integer:
		f, ok := ToFloat(v)
		return ok && IsIntegral(f)
	case Number:
		_, ok := ToFloat(v)
		return ok
	default:
		return TypeOf(v) == t
	}
}

// IsIntegral reports whether f has no fractional part.
func IsIntegral(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

// ToFloat converts a decoded JSON number to float64.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// ToInt converts a non-negative integral JSON number to int.
func ToInt(v any) (int, bool) {
	f, ok := ToFloat(v)
	if !ok || !IsIntegral(f) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// Equal reports deep JSON equality. Numbers compare by value regardless of
// their Go representation, so 1, 1.0 and json.Number("1") are equal.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	}
	fa, ok := ToFloat(a)
	if !ok {
		return false
	}
	fb, ok := ToFloat(b)
	return ok && fa == fb
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Clone(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// ErrCycle is returned by Normalize for a value that contains itself.
var ErrCycle = errors.New("jsonvalue: cyclic value")

// Normalize converts YAML-style decoded values into the JSON shape: maps
// with non-string keys become map[string]any and nested slices are walked.
// Maps and slices are updated in place.
func Normalize(v any) (any, error) {
	return normalize(v, map[uintptr]bool{})
}

func normalize(v any, onPath map[uintptr]bool) (any, error) {
	var p uintptr
	switch x := v.(type) {
	case map[string]any, map[any]any:
		p = reflect.ValueOf(x).Pointer()
	case []any:
		if len(x) > 0 {
			p = uintptr(unsafe.Pointer(&x[0]))
		}
	}
	if p != 0 {
		if onPath[p] {
			return nil, ErrCycle
		}
		onPath[p] = true
		defer delete(onPath, p)
	}
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			n, err := normalize(e, onPath)
			if err != nil {
				return nil, err
			}
			x[k] = n
		}
		return x, nil
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			n, err := normalize(e, onPath)
			if err != nil {
				return nil, err
			}
			out[ks] = n
		}
		return out, nil
	case []any:
		for i, e := range x {
			n, err := normalize(e, onPath)
			if err != nil {
				return nil, err
			}
			x[i] = n
		}
		return x, nil
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalize(e, onPath)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return v, nil
	}
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
