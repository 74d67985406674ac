package keywords

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/openbindings/jsonschema-go"
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// Regexp is "pattern" with flags. The value is "/source/flags" or
// {"pattern": source, "flags": flags}; the flags i, m and s are supported.
func Regexp() *jsonschema.KeywordDefinition {
	return &jsonschema.KeywordDefinition{
		Type: []jsonvalue.Type{jsonvalue.String},
		MetaSchema: map[string]any{
			"anyOf": []any{
				map[string]any{"type": "string"},
				map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"pattern": map[string]any{"type": "string"}, "flags": map[string]any{"type": "string"}},
					"required":             []any{"pattern"},
					"additionalProperties": false,
				},
			},
		},
		Compile: func(schema any, _ map[string]any, _ *jsonschema.KeywordCompileContext) (jsonschema.KeywordFunc, error) {
			source, flags, err := splitRegexp(schema)
			if err != nil {
				return nil, err
			}
			re, err := compileRegexp(source, flags)
			if err != nil {
				return nil, err
			}
			return func(_ *jsonschema.KeywordContext, data any) (bool, error) {
				return re.MatchString(data.(string)), nil
			}, nil
		},
	}
}

func splitRegexp(schema any) (source, flags string, err error) {
	switch x := schema.(type) {
	case map[string]any:
		source, _ = x["pattern"].(string)
		flags, _ = x["flags"].(string)
		return source, flags, nil
	case string:
		if !strings.HasPrefix(x, "/") {
			return x, "", nil
		}
		end := strings.LastIndex(x, "/")
		if end == 0 {
			return "", "", fmt.Errorf("regexp %q: missing closing slash", x)
		}
		return x[1:end], x[end+1:], nil
	}
	return "", "", fmt.Errorf("regexp should be string or object")
}

func compileRegexp(source, flags string) (*regexp.Regexp, error) {
	var prefix strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(prefix.String(), f) {
				prefix.WriteRune(f)
			}
		case 'g', 'u', 'y':
			// no effect on a single match
		default:
			return nil, fmt.Errorf("regexp: unsupported flag %q", f)
		}
	}
	if prefix.Len() > 0 {
		source = "(?" + prefix.String() + ")" + source
	}
	return regexp.Compile(source)
}
