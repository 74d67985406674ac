package jsonschema

import (
	"fmt"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func genConst(c cctx, _ map[string]any, value any) (validateFunc, error) {
	op, err := c.operand("const", value, nil, "")
	if err != nil {
		return nil, err
	}
	site := c.site("const", value)
	return func(s *state, f *frame) bool {
		want, ok := op.get(s, f)
		if !ok || jsonvalue.Equal(f.data, want) {
			return true
		}
		site.add(s, f, map[string]any{"allowedValue": want}, "should be equal to constant")
		return false
	}, nil
}

func genEnum(c cctx, _ map[string]any, value any) (validateFunc, error) {
	op, err := c.operand("enum", value, func(v any) bool { _, ok := v.([]any); return ok }, "array")
	if err != nil {
		return nil, err
	}
	site := c.site("enum", value)
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok {
			return true
		}
		values, _ := raw.([]any)
		for _, v := range values {
			if jsonvalue.Equal(f.data, v) {
				return true
			}
		}
		site.add(s, f, map[string]any{"allowedValues": raw}, "should be equal to one of the allowed values")
		return false
	}, nil
}

// compileBranches compiles the schemas of an array keyword.
func compileBranches(c cctx, kw string, value any, composite bool) ([]validateFunc, error) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return nil, c.errorf(kw, "%s should be a non-empty array", kw)
	}
	fns := make([]validateFunc, len(list))
	for i, sch := range list {
		sub := c.subIndex(kw, i)
		if composite {
			sub = sub.asComposite()
		}
		fn, err := sub.compile(sch)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return fns, nil
}

func genNot(c cctx, _ map[string]any, value any) (validateFunc, error) {
	fn, err := c.sub("not").asComposite().compile(value)
	if err != nil {
		return nil, err
	}
	site := c.site("not", value)
	return func(s *state, f *frame) bool {
		mark := len(s.errs)
		ok := fn(s, f)
		s.errs = s.errs[:mark]
		if s.err != nil {
			return false
		}
		if ok {
			site.add(s, f, nil, "should NOT be valid")
		}
		return !ok
	}, nil
}

func genAnyOf(c cctx, _ map[string]any, value any) (validateFunc, error) {
	fns, err := compileBranches(c, "anyOf", value, true)
	if err != nil {
		return nil, err
	}
	site := c.site("anyOf", value)
	return func(s *state, f *frame) bool {
		mark := len(s.errs)
		for _, fn := range fns {
			if fn(s, f) {
				s.errs = s.errs[:mark]
				return true
			}
			if s.err != nil {
				return false
			}
		}
		site.add(s, f, nil, "should match some schema in anyOf")
		return false
	}, nil
}

func genOneOf(c cctx, _ map[string]any, value any) (validateFunc, error) {
	fns, err := compileBranches(c, "oneOf", value, true)
	if err != nil {
		return nil, err
	}
	site := c.site("oneOf", value)
	return func(s *state, f *frame) bool {
		mark := len(s.errs)
		passing := -1
		for i, fn := range fns {
			if !fn(s, f) {
				if s.err != nil {
					return false
				}
				continue
			}
			if passing >= 0 {
				s.errs = s.errs[:mark]
				site.add(s, f, map[string]any{"passingSchemas": []int{passing, i}}, "should match exactly one schema in oneOf")
				return false
			}
			passing = i
		}
		if passing >= 0 {
			s.errs = s.errs[:mark]
			return true
		}
		site.add(s, f, map[string]any{"passingSchemas": nil}, "should match exactly one schema in oneOf")
		return false
	}, nil
}

func genAllOf(c cctx, _ map[string]any, value any) (validateFunc, error) {
	fns, err := compileBranches(c, "allOf", value, false)
	if err != nil {
		return nil, err
	}
	allErrors := c.opts().AllErrors
	return func(s *state, f *frame) bool {
		valid := true
		for _, fn := range fns {
			if !fn(s, f) {
				if s.err != nil || !allErrors {
					return false
				}
				valid = false
			}
		}
		return valid
	}, nil
}

// genIf compiles if/then/else. Errors of the condition are never reported.
func genIf(c cctx, m map[string]any, value any) (validateFunc, error) {
	thenSchema, hasThen := m["then"]
	elseSchema, hasElse := m["else"]
	if !hasThen && !hasElse {
		return nil, nil
	}
	cond, err := c.sub("if").asComposite().compile(value)
	if err != nil {
		return nil, err
	}
	var thenFn, elseFn validateFunc
	if hasThen {
		if thenFn, err = c.sub("then").compile(thenSchema); err != nil {
			return nil, err
		}
	}
	if hasElse {
		if elseFn, err = c.sub("else").compile(elseSchema); err != nil {
			return nil, err
		}
	}
	site := c.site("if", value)
	return func(s *state, f *frame) bool {
		mark := len(s.errs)
		ok := cond(s, f)
		s.errs = s.errs[:mark]
		if s.err != nil {
			return false
		}
		branch, name := elseFn, "else"
		if ok {
			branch, name = thenFn, "then"
		}
		if branch == nil || branch(s, f) {
			return true
		}
		if s.err != nil {
			return false
		}
		site.add(s, f, map[string]any{"failingKeyword": name}, fmt.Sprintf("should match %q schema", name))
		return false
	}, nil
}
