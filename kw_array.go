package jsonschema

import (
	"fmt"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func genMaxItems(c cctx, _ map[string]any, value any) (validateFunc, error) {
	return genCount(c, "maxItems", value, true, "items", func(v any) int { return len(v.([]any)) })
}

func genMinItems(c cctx, _ map[string]any, value any) (validateFunc, error) {
	return genCount(c, "minItems", value, false, "items", func(v any) int { return len(v.([]any)) })
}

func genMaxProperties(c cctx, _ map[string]any, value any) (validateFunc, error) {
	return genCount(c, "maxProperties", value, true, "properties", func(v any) int { return len(v.(map[string]any)) })
}

func genMinProperties(c cctx, _ map[string]any, value any) (validateFunc, error) {
	return genCount(c, "minProperties", value, false, "properties", func(v any) int { return len(v.(map[string]any)) })
}

// genCount compiles the item and property count limits.
func genCount(c cctx, kw string, value any, isMax bool, noun string, size func(any) int) (validateFunc, error) {
	op, err := c.operand(kw, value, isCount, "a non-negative integer")
	if err != nil {
		return nil, err
	}
	site := c.site(kw, value)
	word := "fewer"
	if isMax {
		word = "more"
	}
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok {
			return true
		}
		n := size(f.data)
		if limit, ok := jsonvalue.ToInt(raw); ok {
			if (isMax && n <= limit) || (!isMax && n >= limit) {
				return true
			}
		}
		site.add(s, f, map[string]any{"limit": raw}, fmt.Sprintf("should NOT have %s than %v %s", word, raw, noun))
		return false
	}, nil
}

// genItems compiles "items" with "additionalItems".
func genItems(c cctx, m map[string]any, value any) (validateFunc, error) {
	allErrors := c.opts().AllErrors
	tuple, isTuple := value.([]any)
	if !isTuple {
		if value == true {
			return nil, nil
		}
		fn, err := c.child("items").compile(value)
		if err != nil {
			return nil, err
		}
		return func(s *state, f *frame) bool {
			arr := f.data.([]any)
			valid := true
			for i := range arr {
				if !fn(s, f.child(i, arr[i])) {
					if s.err != nil || !allErrors {
						return false
					}
					valid = false
				}
			}
			return valid
		}, nil
	}

	fns := make([]validateFunc, len(tuple))
	for i, sch := range tuple {
		sub := c.childIndex("items", i)
		if d, ok := sch.(map[string]any); ok && c.opts().UseDefaults != DefaultsOff {
			_, sub.defaulted = d["default"]
		}
		fn, err := sub.compile(sch)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	var addFn validateFunc
	var addSite *errSite
	if add, ok := m["additionalItems"]; ok {
		switch add {
		case false:
			addSite = c.site("additionalItems", add)
		case true:
		default:
			fn, err := c.child("additionalItems").compile(add)
			if err != nil {
				return nil, err
			}
			addFn = fn
		}
	}
	n := len(tuple)
	return func(s *state, f *frame) bool {
		arr := f.data.([]any)
		valid := true
		fail := func() bool {
			valid = false
			return s.err != nil || !allErrors
		}
		for i := 0; i < n && i < len(arr); i++ {
			if !fns[i](s, f.child(i, arr[i])) && fail() {
				return false
			}
		}
		if len(arr) > n {
			switch {
			case addSite != nil:
				addSite.add(s, f, map[string]any{"limit": n}, fmt.Sprintf("should NOT have more than %d items", n))
				if fail() {
					return false
				}
			case addFn != nil:
				for i := n; i < len(arr); i++ {
					if !addFn(s, f.child(i, arr[i])) && fail() {
						return false
					}
				}
			}
		}
		return valid
	}, nil
}

// genContains reports one error when no item matches; item errors are dropped.
func genContains(c cctx, _ map[string]any, value any) (validateFunc, error) {
	fn, err := c.child("contains").asComposite().compile(value)
	if err != nil {
		return nil, err
	}
	site := c.site("contains", value)
	return func(s *state, f *frame) bool {
		arr := f.data.([]any)
		mark := len(s.errs)
		for i := range arr {
			if fn(s, f.child(i, arr[i])) {
				s.errs = s.errs[:mark]
				return true
			}
			if s.err != nil {
				return false
			}
		}
		s.errs = s.errs[:mark]
		site.add(s, f, nil, "should contain a valid item")
		return false
	}, nil
}

func genUniqueItems(c cctx, _ map[string]any, value any) (validateFunc, error) {
	op, err := c.operand("uniqueItems", value, func(v any) bool { _, ok := v.(bool); return ok }, "boolean")
	if err != nil {
		return nil, err
	}
	if !op.isData() && value == false {
		return nil, nil
	}
	site := c.site("uniqueItems", value)
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok || raw == false {
			return true
		}
		if raw != true {
			site.add(s, f, map[string]any{"i": 0, "j": 0}, "uniqueItems should be boolean")
			return false
		}
		arr := f.data.([]any)
		for i := len(arr) - 1; i > 0; i-- {
			for j := i - 1; j >= 0; j-- {
				if jsonvalue.Equal(arr[i], arr[j]) {
					site.add(s, f, map[string]any{"i": i, "j": j},
						fmt.Sprintf("should NOT have duplicate items (items ## %d and %d are identical)", j, i))
					return false
				}
			}
		}
		return true
	}, nil
}
