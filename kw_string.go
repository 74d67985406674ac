package jsonschema

import (
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

func genMaxLength(c cctx, _ map[string]any, value any) (validateFunc, error) {
	return genLength(c, "maxLength", value, true)
}

func genMinLength(c cctx, _ map[string]any, value any) (validateFunc, error) {
	return genLength(c, "minLength", value, false)
}

// genLength compiles maxLength and minLength. Length counts code points.
func genLength(c cctx, kw string, value any, isMax bool) (validateFunc, error) {
	op, err := c.operand(kw, value, isCount, "a non-negative integer")
	if err != nil {
		return nil, err
	}
	site := c.site(kw, value)
	word := "shorter"
	if isMax {
		word = "longer"
	}
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok {
			return true
		}
		n := utf8.RuneCountInString(f.data.(string))
		if limit, ok := jsonvalue.ToInt(raw); ok {
			if (isMax && n <= limit) || (!isMax && n >= limit) {
				return true
			}
		}
		site.add(s, f, map[string]any{"limit": raw}, fmt.Sprintf("should NOT be %s than %v characters", word, raw))
		return false
	}, nil
}

func genPattern(c cctx, _ map[string]any, value any) (validateFunc, error) {
	op, err := c.operand("pattern", value, func(v any) bool { _, ok := v.(string); return ok }, "string")
	if err != nil {
		return nil, err
	}
	var re *regexp.Regexp
	if !op.isData() {
		if re, err = c.comp.pattern(value.(string)); err != nil {
			return nil, &SchemaError{SchemaPath: c.path("pattern"), Keyword: "pattern", Err: err}
		}
	}
	site := c.site("pattern", value)
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok {
			return true
		}
		r := re
		p, isStr := raw.(string)
		if op.isData() && isStr {
			r, _ = regexp.Compile(p)
		}
		if r != nil && r.MatchString(f.data.(string)) {
			return true
		}
		site.add(s, f, map[string]any{"pattern": raw}, fmt.Sprintf("should match pattern %q", fmt.Sprint(raw)))
		return false
	}, nil
}

// genFormat compiles "format". Format checkers choose the types they apply
// to, so the rule runs for every type.
func genFormat(c cctx, _ map[string]any, value any) (validateFunc, error) {
	opts := c.opts()
	if opts.Format == FormatOff {
		return nil, nil
	}
	op, err := c.operand("format", value, func(v any) bool { _, ok := v.(string); return ok }, "string")
	if err != nil {
		return nil, err
	}
	registry := c.comp.c.formats
	site := c.site("format", value)
	if !op.isData() {
		name := value.(string)
		fm, ok := registry.Lookup(name)
		if !ok {
			return nil, c.unknownFormat(name)
		}
		return func(s *state, f *frame) bool {
			if fm.Check(f.data) {
				return true
			}
			site.add(s, f, map[string]any{"format": name}, fmt.Sprintf("should match format %q", name))
			return false
		}, nil
	}
	ignoreUnknown := opts.UnknownFormats == UnknownFormatsIgnore
	return func(s *state, f *frame) bool {
		raw, ok := op.get(s, f)
		if !ok {
			return true
		}
		name, _ := raw.(string)
		fm, known := registry.Lookup(name)
		if known && fm.Check(f.data) || !known && ignoreUnknown {
			return true
		}
		site.add(s, f, map[string]any{"format": raw}, fmt.Sprintf("should match format %q", fmt.Sprint(raw)))
		return false
	}, nil
}

// unknownFormat decides what a format missing from the registry does. A nil
// error means the keyword is skipped.
func (c cctx) unknownFormat(name string) error {
	opts := c.opts()
	switch opts.UnknownFormats {
	case UnknownFormatsIgnore:
		c.comp.c.log.Warn("unknown format ignored", "format", name, "schemaPath", c.path("format"))
		return nil
	case UnknownFormatsAllowList:
		for _, a := range opts.AllowedUnknownFormats {
			if a == name {
				return nil
			}
		}
	}
	return c.errorf("format", "unknown format %q is used in schema at path %q", name, c.path())
}
