package jsonschema

import (
	"sort"
	"strings"
)

// splitKeywords separates the keys of a schema object that no rule handles into:
// - extensions: keys starting with "x-"
// - unknown: all other keys not in known
func splitKeywords(schema map[string]any, known map[string]bool) (extensions, unknown []string) {
	for k := range schema {
		if known[k] {
			continue
		}
		if strings.HasPrefix(k, "x-") {
			extensions = append(extensions, k)
			continue
		}
		unknown = append(unknown, k)
	}
	sort.Strings(extensions)
	sort.Strings(unknown)
	return extensions, unknown
}

// report applies a strictness level to a schema problem found at path.
func (c cctx) report(level Strictness, keyword, msg string) error {
	switch level {
	case StrictError:
		return &SchemaError{SchemaPath: c.path(keyword), Keyword: keyword, Message: msg}
	case StrictLog:
		c.comp.c.log.Warn(msg, "schemaPath", c.path(keyword))
	}
	return nil
}
