// Package keywords provides optional custom keywords for a jsonschema.Compiler.
//
//	c, _ := jsonschema.New()
//	if err := keywords.Add(c); err != nil { ... }           // all of them
//	if err := keywords.Add(c, "range", "expr"); err != nil { ... }
package keywords

import (
	"fmt"
	"sort"

	"github.com/openbindings/jsonschema-go"
)

// definitions lists every keyword in this package. "exclusiveRange" depends
// on "range" and is added with it.
var definitions = map[string]func() *jsonschema.KeywordDefinition{
	"range":                Range,
	"exclusiveRange":       ExclusiveRange,
	"regexp":               Regexp,
	"uniqueItemProperties": UniqueItemProperties,
	"expr":                 Expr,
	"typeof":               Typeof,
}

var companions = map[string][]string{
	"range": {"exclusiveRange"},
}

// Names returns the keywords this package defines.
func Names() []string {
	out := make([]string, 0, len(definitions))
	for k := range definitions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Add registers the named keywords, or all of them when names is empty.
func Add(c *jsonschema.Compiler, names ...string) error {
	if len(names) == 0 {
		names = Names()
	}
	added := map[string]bool{}
	var add func(name string) error
	add = func(name string) error {
		if added[name] {
			return nil
		}
		def, ok := definitions[name]
		if !ok {
			return fmt.Errorf("keywords: unknown keyword %q", name)
		}
		if err := c.AddKeyword(name, def()); err != nil {
			return fmt.Errorf("keywords: %w", err)
		}
		added[name] = true
		for _, n := range companions[name] {
			if err := add(n); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range names {
		if err := add(name); err != nil {
			return err
		}
	}
	return nil
}
