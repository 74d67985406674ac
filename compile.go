package jsonschema

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/openbindings/jsonschema-go/jsonvalue"
	"github.com/openbindings/jsonschema-go/resolve"
)

// slotKey identifies a compiled sub-schema within one compilation.
type slotKey struct {
	doc  *resolve.Document
	ptr  string
	base string
}

// refSlot is a reference target compiled as a separate function. Callers
// read fn when they run, so a slot may be referenced while it is still being
// compiled.
type refSlot struct {
	fn validateFunc
}

func (r *refSlot) call(s *state, f *frame) bool { return r.fn(s, f) }

// compilation holds the state of compiling one root schema.
type compilation struct {
	c        *Compiler
	opts     *Options
	rootDoc  *resolve.Document
	rootPtr  string
	async    bool
	self     *schemaRecord
	slots    map[slotKey]*refSlot
	refs     []RefEntry
	refIndex map[string]int
	patterns map[string]*regexp.Regexp
	src      strings.Builder
}

func (comp *compilation) addRef(e RefEntry) {
	if _, ok := comp.refIndex[e.Ref]; ok {
		return
	}
	comp.refIndex[e.Ref] = len(comp.refs)
	comp.refs = append(comp.refs, e)
}

func (comp *compilation) trace(depth int, format string, args ...any) {
	comp.src.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(&comp.src, format, args...)
	comp.src.WriteByte('\n')
}

func (comp *compilation) pattern(p string) (*regexp.Regexp, error) {
	if re, ok := comp.patterns[p]; ok {
		return re, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}
	comp.patterns[p] = re
	return re, nil
}

// cctx is the position of the schema being compiled.
type cctx struct {
	comp   *compilation
	doc    *resolve.Document
	baseID string
	// ptr is the JSON Pointer of the schema from doc's root.
	ptr   string
	depth int
	// composite is set below not, anyOf, oneOf, if and contains, where
	// defaults are not applied.
	composite bool
	// defaulted is set when the enclosing properties or items applies this
	// schema's default.
	defaulted bool
	// parent is the schema object whose keywords are being compiled.
	parent map[string]any
	// idApplied is set when baseID already includes the schema's own
	// identifier, as it does for resolved references.
	idApplied bool
	// sameData lists the reference targets being compiled for the same
	// instance location. A $ref back to one of them never consumes data.
	sameData []slotKey
}

func (c cctx) opts() *Options { return c.comp.opts }

// sub moves to the schema found under tokens.
func (c cctx) sub(tokens ...string) cctx {
	n := c
	for _, t := range tokens {
		n.ptr = jsonvalue.AppendToken(n.ptr, t)
	}
	n.depth++
	n.defaulted = false
	n.idApplied = false
	n.parent = nil
	return n
}

func (c cctx) subIndex(keyword string, i int) cctx {
	n := c.sub(keyword)
	n.ptr = jsonvalue.AppendIndex(n.ptr, i)
	return n
}

// child moves to a schema applied to a member or an item of the instance.
func (c cctx) child(tokens ...string) cctx {
	n := c.sub(tokens...)
	n.sameData = nil
	return n
}

func (c cctx) childIndex(keyword string, i int) cctx {
	n := c.subIndex(keyword, i)
	n.sameData = nil
	return n
}

// entering returns sameData extended with key.
func (c cctx) entering(key slotKey) []slotKey {
	out := make([]slotKey, len(c.sameData), len(c.sameData)+1)
	copy(out, c.sameData)
	return append(out, key)
}

func (c cctx) asComposite() cctx {
	c.composite = true
	return c
}

// path is the schema path of tokens below the current schema. It is relative
// to the compiled document unless the schema lives in another one.
func (c cctx) path(tokens ...string) string {
	p := c.ptr
	for _, t := range tokens {
		if t != "" {
			p = jsonvalue.AppendToken(p, t)
		}
	}
	if c.doc != c.comp.rootDoc && c.doc.ID != "" {
		return c.doc.ID + "#" + p
	}
	return "#" + p
}

func (c cctx) site(keyword string, schema any, tokens ...string) *errSite {
	return &errSite{
		keyword:    keyword,
		schemaPath: c.path(append([]string{keyword}, tokens...)...),
		schema:     schema,
		parent:     c.parent,
		verbose:    c.opts().Verbose,
	}
}

func (c cctx) errorf(keyword, format string, args ...any) error {
	return &SchemaError{SchemaPath: c.path(keyword), Keyword: keyword, Message: fmt.Sprintf(format, args...)}
}

// compile compiles the schema at the current position.
func (c cctx) compile(schema any) (validateFunc, error) {
	switch x := schema.(type) {
	case bool:
		if x {
			c.comp.trace(c.depth, "true")
			return alwaysValid, nil
		}
		c.comp.trace(c.depth, "false")
		site := &errSite{keyword: "false schema", schemaPath: c.path(), schema: false, verbose: c.opts().Verbose}
		return func(s *state, f *frame) bool {
			site.add(s, f, nil, "boolean schema is false")
			return false
		}, nil
	case map[string]any:
		return c.compileObject(x)
	}
	return nil, &SchemaError{SchemaPath: c.path(), Message: fmt.Sprintf("schema should be object or boolean, got %s", jsonvalue.TypeOf(schema))}
}

func (c cctx) compileObject(m map[string]any) (validateFunc, error) {
	comp := c.comp
	opts := c.opts()
	c.parent = m

	id, err := comp.c.resolver.IDs.Of(m)
	if err != nil {
		return nil, &SchemaError{SchemaPath: c.path(), Keyword: "$id", Err: err}
	}
	if id != "" && !c.idApplied {
		c.baseID = resolve.ResolveURL(c.baseID, id)
	}
	if isAsync(m) && !comp.async {
		return nil, &SchemaError{SchemaPath: c.path("$async"), Keyword: "$async", Message: "async schema in sync schema", Err: ErrAsyncSchema}
	}

	if opts.StrictKeywords != StrictOff {
		if _, unknown := splitKeywords(m, comp.c.rules.known); len(unknown) > 0 {
			msg := fmt.Sprintf("unknown keyword: %s", strings.Join(unknown, ", "))
			if err := c.report(opts.StrictKeywords, "", msg); err != nil {
				return nil, err
			}
		}
	}
	if _, ok := m["default"]; ok && opts.UseDefaults != DefaultsOff && opts.StrictDefaults != StrictOff {
		if !c.defaulted || c.composite {
			if err := c.report(opts.StrictDefaults, "default", "default is ignored for: "+c.path()); err != nil {
				return nil, err
			}
		}
	}

	var refFn validateFunc
	if raw, ok := m["$ref"]; ok {
		ref, ok := raw.(string)
		if !ok {
			return nil, c.errorf("$ref", "$ref should be string")
		}
		siblings := comp.c.rules.validatingKeywords(m, "$ref")
		if len(siblings) == 0 {
			return c.compileRef(ref)
		}
		switch opts.ExtendRefs {
		case ExtendRefsFail:
			return nil, c.errorf("$ref", "validation keywords used in schema with $ref: %s", strings.Join(siblings, ", "))
		case ExtendRefsIgnore:
			comp.c.log.Warn("$ref: keywords ignored in schema", "schemaPath", c.path(), "keywords", siblings)
			return c.compileRef(ref)
		}
		if refFn, err = c.compileRef(ref); err != nil {
			return nil, err
		}
	}

	typeFn, err := c.compileType(m)
	if err != nil {
		return nil, err
	}

	type step struct {
		typ jsonvalue.Type
		fns []validateFunc
	}
	var steps []step
	if refFn != nil {
		steps = append(steps, step{fns: []validateFunc{refFn}})
	}
	for _, g := range comp.c.rules.groups {
		var fns []validateFunc
		if !c.composite && opts.UseDefaults != DefaultsOff {
			switch g.typ {
			case jsonvalue.Object:
				if fn := c.objectDefaults(m); fn != nil {
					fns = append(fns, fn)
				}
			case jsonvalue.Array:
				if fn := c.itemDefaults(m); fn != nil {
					fns = append(fns, fn)
				}
			}
		}
		for _, r := range g.rules {
			if r.keyword == "$ref" || !r.applies(m) {
				continue
			}
			comp.trace(c.depth, "%s", r.keyword)
			fn, err := r.gen(c, m, m[r.keyword])
			if err != nil {
				return nil, err
			}
			if fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) > 0 {
			steps = append(steps, step{typ: g.typ, fns: fns})
		}
	}

	allErrors := opts.AllErrors
	if typeFn == nil && len(steps) == 0 {
		return alwaysValid, nil
	}
	return func(s *state, f *frame) bool {
		valid := true
		if typeFn != nil && !typeFn(s, f) {
			if !allErrors {
				return false
			}
			valid = false
		}
		for _, st := range steps {
			if st.typ != "" && !jsonvalue.Is(f.data, st.typ) {
				continue
			}
			for _, fn := range st.fns {
				if !fn(s, f) {
					if s.err != nil || !allErrors {
						return false
					}
					valid = false
				}
			}
		}
		return valid
	}, nil
}

func isAsync(schema any) bool {
	m, ok := schema.(map[string]any)
	return ok && m["$async"] == true
}

// compileType builds the "type" check, with coercion when enabled.
func (c cctx) compileType(m map[string]any) (validateFunc, error) {
	raw, ok := m["type"]
	if !ok {
		return nil, nil
	}
	var types []jsonvalue.Type
	switch x := raw.(type) {
	case string:
		types = append(types, jsonvalue.Type(x))
	case []any:
		for _, t := range x {
			s, ok := t.(string)
			if !ok {
				return nil, c.errorf("type", "type should be string or array of strings")
			}
			types = append(types, jsonvalue.Type(s))
		}
	default:
		return nil, c.errorf("type", "type should be string or array of strings")
	}
	for _, t := range types {
		if !jsonvalue.IsType(string(t)) {
			return nil, c.errorf("type", "unknown type %q", t)
		}
	}
	if c.opts().Nullable && m["nullable"] == true && !containsType(types, jsonvalue.Null) {
		types = append(types, jsonvalue.Null)
	}
	c.comp.trace(c.depth, "type %v", types)

	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	joined := strings.Join(names, ",")
	site := c.site("type", raw)
	mode := c.opts().CoerceTypes
	targets := coercionTargets(types, mode)
	match := func(v any) bool {
		for _, t := range types {
			if jsonvalue.Is(v, t) {
				return true
			}
		}
		return false
	}
	return func(s *state, f *frame) bool {
		if match(f.data) {
			return true
		}
		if mode != CoerceOff {
			if v, ok := coerce(f.data, targets, mode, match); ok {
				f.set(v)
				return true
			}
		}
		site.add(s, f, map[string]any{"type": joined}, "should be "+joined)
		return false
	}, nil
}

func containsType(types []jsonvalue.Type, t jsonvalue.Type) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// compileRef compiles a $ref to a forwarding call, an inlined schema, or a
// call into another registered schema.
func (c cctx) compileRef(ref string) (validateFunc, error) {
	comp := c.comp
	c.comp.trace(c.depth, "$ref %s", ref)
	t, err := comp.c.resolver.Resolve(c.doc, c.baseID, ref)
	if err != nil {
		var mr *MissingRefError
		if errors.As(err, &mr) && comp.opts.MissingRefs == MissingRefsIgnore {
			comp.c.log.Warn("$ref: reference ignored", "ref", ref, "baseID", c.baseID)
			return alwaysValid, nil
		}
		return nil, &SchemaError{SchemaPath: c.path("$ref"), Keyword: "$ref", Err: err}
	}
	abs := resolve.ResolveURL(c.baseID, ref)
	if isAsync(t.Schema) && !comp.async {
		return nil, &SchemaError{SchemaPath: c.path("$ref"), Keyword: "$ref", Message: "$ref to async schema from sync schema", Err: ErrAsyncSchema}
	}

	key := slotKey{doc: t.Doc, ptr: t.Pointer, base: t.BaseID}
	if slices.Contains(c.sameData, key) {
		return nil, c.errorf("$ref", "$ref %s resolves to itself", ref)
	}
	if slot, ok := comp.slots[key]; ok {
		comp.addRef(RefEntry{Ref: abs, Schema: t.Schema})
		return slot.call, nil
	}
	target := cctx{comp: comp, doc: t.Doc, baseID: t.BaseID, ptr: t.Pointer, depth: c.depth + 1, idApplied: true}
	target.sameData = c.entering(key)

	if rec := comp.c.reg.byDoc[t.Doc]; rec != nil && t.Pointer == "" && t.Doc != comp.rootDoc {
		return comp.callRecord(c, rec, abs)
	}
	if resolve.InlineRef(t.Schema, comp.opts.InlineRefs) {
		comp.addRef(RefEntry{Ref: abs, Schema: t.Schema, Inlined: true})
		return target.compile(t.Schema)
	}
	slot := &refSlot{}
	comp.slots[key] = slot
	comp.addRef(RefEntry{Ref: abs, Schema: t.Schema})
	fn, err := target.compile(t.Schema)
	if err != nil {
		return nil, err
	}
	slot.fn = fn
	return slot.call, nil
}

// callRecord calls the validator of another registered schema, compiling it
// first unless it is already being compiled further up the stack.
func (comp *compilation) callRecord(c cctx, rec *schemaRecord, abs string) (validateFunc, error) {
	var fn validateFunc
	entry := RefEntry{Ref: abs, Schema: rec.doc.Schema}
	if rec.state == stateCompiling {
		if slices.Contains(c.sameData, slotKey{doc: rec.doc, base: rec.doc.ID}) {
			return nil, c.errorf("$ref", "$ref %s resolves to itself", abs)
		}
		id := rec.doc.ID
		fn = func(s *state, f *frame) bool {
			v := rec.validator.Load()
			if v == nil {
				return s.fail(fmt.Errorf("schema %s is not compiled", id))
			}
			return v.fn(s, f)
		}
	} else {
		v, err := comp.c.compileRecordAt(rec, c.sameData)
		if err != nil {
			return nil, err
		}
		if v.async && !comp.async {
			return nil, fmt.Errorf("%w: $ref to async schema %s from sync schema", ErrAsyncSchema, rec.doc.ID)
		}
		fn = v.fn
		entry.Validator = v
	}
	if comp.self != nil && comp.self != rec {
		rec.dependents[comp.self] = struct{}{}
	}
	comp.addRef(entry)
	docID, rootID := rec.doc.ID, comp.rootDoc.ID
	return func(s *state, f *frame) bool {
		mark := len(s.errs)
		if fn(s, f) {
			return true
		}
		rebaseErrors(s.errs[mark:], docID, rootID)
		return false
	}, nil
}

func genRef(c cctx, _ map[string]any, value any) (validateFunc, error) {
	ref, ok := value.(string)
	if !ok {
		return nil, c.errorf("$ref", "$ref should be string")
	}
	return c.compileRef(ref)
}
