package jsonschema

import (
	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// generator compiles one keyword of the schema object m. A nil function with
// a nil error means the keyword has nothing to check.
type generator func(c cctx, m map[string]any, value any) (validateFunc, error)

type rule struct {
	keyword string
	// implements lists keywords handled by this rule; the rule also runs when
	// only one of them is present.
	implements []string
	gen        generator
	custom     *customKeyword
}

func (r *rule) applies(m map[string]any) bool {
	if _, ok := m[r.keyword]; ok {
		return true
	}
	for _, k := range r.implements {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

type ruleGroup struct {
	// typ is "" for keywords that apply to every type.
	typ   jsonvalue.Type
	rules []*rule
}

// ruleTable is the ordered list of keyword rules. Keywords that constrain a
// type run in that type's group; the untyped group runs last.
type ruleTable struct {
	groups []*ruleGroup
	// all holds the keywords that validate something, including "type".
	all map[string]bool
	// known additionally holds annotation and structural keywords.
	known  map[string]bool
	custom map[string]*rule
}

// annotations are accepted by strict mode and never validate anything.
var annotations = []string{
	"$schema", "$id", "id", "$data", "$async", "$comment",
	"title", "description", "default", "definitions", "examples",
	"readOnly", "writeOnly", "contentMediaType", "contentEncoding",
	"additionalItems", "then", "else",
}

func newRuleTable(nullable bool) *ruleTable {
	t := &ruleTable{
		groups: []*ruleGroup{
			{typ: jsonvalue.Number, rules: []*rule{
				{keyword: "maximum", implements: []string{"exclusiveMaximum"}, gen: genMaximum},
				{keyword: "minimum", implements: []string{"exclusiveMinimum"}, gen: genMinimum},
				{keyword: "multipleOf", gen: genMultipleOf},
			}},
			{typ: jsonvalue.String, rules: []*rule{
				{keyword: "maxLength", gen: genMaxLength},
				{keyword: "minLength", gen: genMinLength},
				{keyword: "pattern", gen: genPattern},
			}},
			{typ: jsonvalue.Array, rules: []*rule{
				{keyword: "maxItems", gen: genMaxItems},
				{keyword: "minItems", gen: genMinItems},
				{keyword: "items", gen: genItems},
				{keyword: "contains", gen: genContains},
				{keyword: "uniqueItems", gen: genUniqueItems},
			}},
			{typ: jsonvalue.Object, rules: []*rule{
				{keyword: "maxProperties", gen: genMaxProperties},
				{keyword: "minProperties", gen: genMinProperties},
				{keyword: "required", gen: genRequired},
				{keyword: "dependencies", gen: genDependencies},
				{keyword: "propertyNames", gen: genPropertyNames},
				{keyword: "properties", implements: []string{"additionalProperties", "patternProperties"}, gen: genProperties},
			}},
			{rules: []*rule{
				{keyword: "$ref", gen: genRef},
				{keyword: "format", gen: genFormat},
				{keyword: "const", gen: genConst},
				{keyword: "enum", gen: genEnum},
				{keyword: "not", gen: genNot},
				{keyword: "anyOf", gen: genAnyOf},
				{keyword: "oneOf", gen: genOneOf},
				{keyword: "allOf", gen: genAllOf},
				{keyword: "if", gen: genIf},
			}},
		},
		all:    map[string]bool{"type": true},
		known:  map[string]bool{"type": true},
		custom: map[string]*rule{},
	}
	for _, g := range t.groups {
		for _, r := range g.rules {
			t.all[r.keyword] = true
			t.known[r.keyword] = true
			for _, k := range r.implements {
				t.all[k] = true
				t.known[k] = true
			}
		}
	}
	for _, k := range annotations {
		t.known[k] = true
	}
	if nullable {
		t.known["nullable"] = true
	}
	return t
}

// group returns the group for typ, creating it before the untyped group.
func (t *ruleTable) group(typ jsonvalue.Type) *ruleGroup {
	if typ == jsonvalue.Integer {
		typ = jsonvalue.Number
	}
	for _, g := range t.groups {
		if g.typ == typ {
			return g
		}
	}
	g := &ruleGroup{typ: typ}
	last := len(t.groups) - 1
	t.groups = append(t.groups[:last], g, t.groups[last])
	return g
}

// addCustom appends a custom keyword to the group of each of its types, or to
// the untyped group.
func (t *ruleTable) addCustom(name string, ck *customKeyword) {
	r := &rule{keyword: name, gen: ck.generate, custom: ck}
	if len(ck.def.Type) == 0 {
		g := t.group("")
		g.rules = append(g.rules, r)
	}
	seen := map[*ruleGroup]bool{}
	for _, typ := range ck.def.Type {
		g := t.group(typ)
		if seen[g] {
			continue
		}
		seen[g] = true
		g.rules = append(g.rules, r)
	}
	t.all[name] = true
	t.known[name] = true
	t.custom[name] = r
}

func (t *ruleTable) removeCustom(name string) {
	for _, g := range t.groups {
		kept := g.rules[:0]
		for _, r := range g.rules {
			if r.keyword != name {
				kept = append(kept, r)
			}
		}
		g.rules = kept
	}
	delete(t.all, name)
	delete(t.known, name)
	delete(t.custom, name)
}

// applicable returns the rules that run for data of type typ, in order.
func (t *ruleTable) applicable(typ jsonvalue.Type) []*rule {
	if typ == jsonvalue.Integer {
		typ = jsonvalue.Number
	}
	var out []*rule
	for _, g := range t.groups {
		if g.typ == typ || g.typ == "" {
			out = append(out, g.rules...)
		}
	}
	return out
}

// validatingKeywords returns the keywords of m, other than except, that
// validate something.
func (t *ruleTable) validatingKeywords(m map[string]any, except string) []string {
	var out []string
	for _, k := range jsonvalue.SortedKeys(m) {
		if k != except && t.all[k] {
			out = append(out, k)
		}
	}
	return out
}
