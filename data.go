package jsonschema

import (
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// dataKeywords accept {"$data": pointer} in place of their value.
var dataKeywords = map[string]bool{
	"const": true, "enum": true, "format": true, "pattern": true,
	"maximum": true, "minimum": true, "exclusiveMaximum": true, "exclusiveMinimum": true,
	"multipleOf": true, "maxLength": true, "minLength": true,
	"maxItems": true, "minItems": true, "uniqueItems": true,
	"maxProperties": true, "minProperties": true, "required": true,
}

// operand is a keyword value fixed in the schema or read from the instance.
type operand struct {
	value any
	ptr   *jsonvalue.RelativePointer
}

// get returns the keyword value for f. The second result is false when a
// $data pointer leads nowhere, in which case the keyword is skipped.
func (o operand) get(s *state, f *frame) (any, bool) {
	if o.ptr == nil {
		return o.value, true
	}
	return f.lookup(s, *o.ptr)
}

func (o operand) isData() bool { return o.ptr != nil }

// dataPointer recognises a $data reference.
func (c cctx) dataPointer(v any) (*jsonvalue.RelativePointer, error) {
	if !c.opts().Data {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return nil, nil
	}
	p, ok := m["$data"].(string)
	if !ok {
		return nil, nil
	}
	rp, err := jsonvalue.ParseRelativePointer(p)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

// operand reads the value of keyword. check validates a fixed value at
// compile time; $data values are checked by the keyword when they are read.
func (c cctx) operand(keyword string, v any, check func(any) bool, want string) (operand, error) {
	if dataKeywords[keyword] {
		rp, err := c.dataPointer(v)
		if err != nil {
			return operand{}, &SchemaError{SchemaPath: c.path(keyword), Keyword: keyword, Err: err}
		}
		if rp != nil {
			return operand{ptr: rp}, nil
		}
	}
	if check != nil && !check(v) {
		return operand{}, c.errorf(keyword, "%s should be %s", keyword, want)
	}
	return operand{value: v}, nil
}

func isNumber(v any) bool { _, ok := jsonvalue.ToFloat(v); return ok }

func isCount(v any) bool { _, ok := jsonvalue.ToInt(v); return ok }

// objectDefaults inserts the defaults of missing properties.
func (c cctx) objectDefaults(m map[string]any) validateFunc {
	props, ok := m["properties"].(map[string]any)
	if !ok {
		return nil
	}
	type def struct {
		key   string
		value any
	}
	var defs []def
	for _, k := range jsonvalue.SortedKeys(props) {
		if sub, ok := props[k].(map[string]any); ok {
			if v, ok := sub["default"]; ok {
				defs = append(defs, def{k, v})
			}
		}
	}
	if len(defs) == 0 {
		return nil
	}
	mode := c.opts().UseDefaults
	return func(s *state, f *frame) bool {
		obj := f.data.(map[string]any)
		for _, d := range defs {
			cur, ok := obj[d.key]
			if !ok || (mode == DefaultsEmpty && isEmpty(cur)) {
				obj[d.key] = defaultValue(d.value, mode)
			}
		}
		return true
	}
}

// itemDefaults appends the defaults of a tuple's missing trailing items.
func (c cctx) itemDefaults(m map[string]any) validateFunc {
	items, ok := m["items"].([]any)
	if !ok {
		return nil
	}
	defs := make([]any, len(items))
	has := make([]bool, len(items))
	found := false
	for i, it := range items {
		if sub, ok := it.(map[string]any); ok {
			if v, ok := sub["default"]; ok {
				defs[i], has[i], found = v, true, true
			}
		}
	}
	if !found {
		return nil
	}
	mode := c.opts().UseDefaults
	return func(s *state, f *frame) bool {
		arr := f.data.([]any)
		changed := false
		for i := range defs {
			if !has[i] {
				if i >= len(arr) {
					break
				}
				continue
			}
			switch {
			case i < len(arr):
				if mode == DefaultsEmpty && isEmpty(arr[i]) {
					arr[i] = defaultValue(defs[i], mode)
				}
			case i == len(arr):
				arr = append(arr, defaultValue(defs[i], mode))
				changed = true
			}
		}
		if changed {
			f.set(arr)
		}
		return true
	}
}

func isEmpty(v any) bool {
	return v == nil || v == ""
}

func defaultValue(v any, mode DefaultsMode) any {
	if mode == DefaultsShared {
		return v
	}
	return jsonvalue.Clone(v)
}
