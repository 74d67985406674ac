package jsonschema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func genRequired(c cctx, _ map[string]any, value any) (validateFunc, error) {
	op, err := c.operand("required", value, isStringList, "array of strings")
	if err != nil {
		return nil, err
	}
	site := c.site("required", value)
	allErrors := c.opts().AllErrors
	var static []string
	if !op.isData() {
		static = toStrings(value)
		if len(static) == 0 {
			return nil, nil
		}
	}
	return func(s *state, f *frame) bool {
		names := static
		if op.isData() {
			raw, ok := op.get(s, f)
			if !ok {
				return true
			}
			if !isStringList(raw) {
				site.add(s, f, map[string]any{"missingProperty": ""}, "required should be array of strings")
				return false
			}
			names = toStrings(raw)
		}
		obj := f.data.(map[string]any)
		valid := true
		for _, name := range names {
			if _, ok := obj[name]; ok {
				continue
			}
			site.add(s, f, map[string]any{"missingProperty": name}, fmt.Sprintf("should have required property '%s'", name))
			if !allErrors {
				return false
			}
			valid = false
		}
		return valid
	}, nil
}

func isStringList(v any) bool {
	a, ok := v.([]any)
	if !ok {
		return false
	}
	for _, x := range a {
		if _, ok := x.(string); !ok {
			return false
		}
	}
	return true
}

func toStrings(v any) []string {
	a, _ := v.([]any)
	out := make([]string, 0, len(a))
	for _, x := range a {
		out = append(out, x.(string))
	}
	return out
}

// genDependencies compiles property dependencies (arrays of names) and schema
// dependencies.
func genDependencies(c cctx, _ map[string]any, value any) (validateFunc, error) {
	deps, ok := value.(map[string]any)
	if !ok {
		return nil, c.errorf("dependencies", "dependencies should be object")
	}
	type dependency struct {
		prop  string
		names []string
		fn    validateFunc
	}
	var list []dependency
	for _, k := range jsonvalue.SortedKeys(deps) {
		switch d := deps[k].(type) {
		case []any:
			if !isStringList(d) {
				return nil, c.errorf("dependencies", "dependencies of %q should be array of strings", k)
			}
			if len(d) > 0 {
				list = append(list, dependency{prop: k, names: toStrings(d)})
			}
		default:
			fn, err := c.sub("dependencies", k).compile(d)
			if err != nil {
				return nil, err
			}
			list = append(list, dependency{prop: k, fn: fn})
		}
	}
	site := c.site("dependencies", value)
	allErrors := c.opts().AllErrors
	return func(s *state, f *frame) bool {
		obj := f.data.(map[string]any)
		valid := true
		for _, d := range list {
			if _, present := obj[d.prop]; !present {
				continue
			}
			if d.fn != nil {
				if !d.fn(s, f) {
					if s.err != nil || !allErrors {
						return false
					}
					valid = false
				}
				continue
			}
			for _, name := range d.names {
				if _, ok := obj[name]; ok {
					continue
				}
				noun := "property"
				if len(d.names) > 1 {
					noun = "properties"
				}
				joined := strings.Join(d.names, ", ")
				site.add(s, f, map[string]any{
					"property":        d.prop,
					"missingProperty": name,
					"depsCount":       len(d.names),
					"deps":            joined,
				}, fmt.Sprintf("should have %s %s when property %s is present", noun, joined, d.prop))
				if !allErrors {
					return false
				}
				valid = false
			}
		}
		return valid
	}, nil
}

func genPropertyNames(c cctx, _ map[string]any, value any) (validateFunc, error) {
	if value == true {
		return nil, nil
	}
	fn, err := c.child("propertyNames").compile(value)
	if err != nil {
		return nil, err
	}
	site := c.site("propertyNames", value)
	allErrors := c.opts().AllErrors
	return func(s *state, f *frame) bool {
		obj := f.data.(map[string]any)
		valid := true
		for _, k := range jsonvalue.SortedKeys(obj) {
			if fn(s, &frame{data: k, path: f.path}) {
				continue
			}
			if s.err != nil {
				return false
			}
			site.add(s, f, map[string]any{"propertyName": k}, fmt.Sprintf("property name '%s' is invalid", k))
			if !allErrors {
				return false
			}
			valid = false
		}
		return valid
	}, nil
}

type patternProp struct {
	re *regexp.Regexp
	fn validateFunc
}

// genProperties compiles properties, patternProperties and
// additionalProperties together, since additional properties are the ones the
// other two do not name.
func genProperties(c cctx, m map[string]any, _ any) (validateFunc, error) {
	opts := c.opts()
	props, _ := m["properties"].(map[string]any)
	if v, ok := m["properties"]; ok && props == nil {
		return nil, c.errorf("properties", "properties should be object, got %s", jsonvalue.TypeOf(v))
	}
	propKeys := jsonvalue.SortedKeys(props)
	propFns := make(map[string]validateFunc, len(props))
	for _, k := range propKeys {
		sub := c.child("properties", k)
		if d, ok := props[k].(map[string]any); ok && opts.UseDefaults != DefaultsOff {
			_, sub.defaulted = d["default"]
		}
		fn, err := sub.compile(props[k])
		if err != nil {
			return nil, err
		}
		propFns[k] = fn
	}

	var patterns []patternProp
	if raw, ok := m["patternProperties"]; ok {
		pp, ok := raw.(map[string]any)
		if !ok {
			return nil, c.errorf("patternProperties", "patternProperties should be object")
		}
		for _, p := range jsonvalue.SortedKeys(pp) {
			re, err := c.comp.pattern(p)
			if err != nil {
				return nil, &SchemaError{SchemaPath: c.path("patternProperties"), Keyword: "patternProperties", Err: err}
			}
			fn, err := c.child("patternProperties", p).compile(pp[p])
			if err != nil {
				return nil, err
			}
			patterns = append(patterns, patternProp{re: re, fn: fn})
		}
	}

	add, hasAdd := m["additionalProperties"]
	var addFn validateFunc
	var addSite *errSite
	remove := opts.RemoveAdditional
	switch {
	case !hasAdd || add == true:
	case add == false:
		addSite = c.site("additionalProperties", add)
	default:
		fn, err := c.child("additionalProperties").compile(add)
		if err != nil {
			return nil, err
		}
		addFn = fn
	}
	checkAdditional := remove == RemoveAll || addSite != nil || addFn != nil
	allErrors := opts.AllErrors

	return func(s *state, f *frame) bool {
		obj := f.data.(map[string]any)
		valid := true
		fail := func() bool {
			valid = false
			return s.err != nil || !allErrors
		}
		if checkAdditional {
			for _, k := range jsonvalue.SortedKeys(obj) {
				if _, named := propFns[k]; named || matchesAny(patterns, k) {
					continue
				}
				switch {
				case remove == RemoveAll:
					delete(obj, k)
				case addSite != nil:
					if remove == RemoveFalse || remove == RemoveFailing {
						delete(obj, k)
						continue
					}
					addSite.add(s, f, map[string]any{"additionalProperty": k}, "should NOT have additional properties")
					if fail() {
						return false
					}
				case addFn != nil:
					mark := len(s.errs)
					if addFn(s, f.child(k, obj[k])) {
						continue
					}
					if remove == RemoveFailing && s.err == nil {
						s.errs = s.errs[:mark]
						delete(obj, k)
						continue
					}
					if fail() {
						return false
					}
				}
			}
		}
		for _, k := range propKeys {
			v, ok := obj[k]
			if !ok {
				continue
			}
			if !propFns[k](s, f.child(k, v)) && fail() {
				return false
			}
		}
		if len(patterns) > 0 {
			for _, k := range jsonvalue.SortedKeys(obj) {
				for _, p := range patterns {
					if !p.re.MatchString(k) {
						continue
					}
					if !p.fn(s, f.child(k, obj[k])) && fail() {
						return false
					}
				}
			}
		}
		return valid
	}, nil
}

func matchesAny(patterns []patternProp, k string) bool {
	for _, p := range patterns {
		if p.re.MatchString(k) {
			return true
		}
	}
	return false
}
