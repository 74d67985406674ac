package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// KeywordFunc validates data for a compiled custom keyword. A non-nil error
// aborts validation and is returned to the caller as a *KeywordError.
type KeywordFunc func(kc *KeywordContext, data any) (bool, error)

// KeywordDefinition describes a custom keyword. Exactly one of Validate,
// Compile, Macro and Inline must be set.
type KeywordDefinition struct {
	// Type restricts the keyword to instances of these types. Empty means all types.
	Type []jsonvalue.Type
	// MetaSchema validates the keyword value when a schema using it is compiled.
	MetaSchema any

	// Validate is called with the keyword value and the data.
	Validate func(kc *KeywordContext, schema, data any) (bool, error)
	// Compile is called once per use of the keyword and returns the check.
	Compile func(schema any, parent map[string]any, it *KeywordCompileContext) (KeywordFunc, error)
	// Macro returns a schema that replaces the keyword. Errors are those of
	// the expanded schema.
	Macro func(schema any, parent map[string]any, it *KeywordCompileContext) (any, error)
	// Inline is Compile for keywords that build their check from subschemas
	// with KeywordCompileContext.Subschema.
	Inline func(schema any, parent map[string]any, it *KeywordCompileContext) (KeywordFunc, error)

	// Async marks the keyword as usable only in "$async" schemas.
	Async bool
	// Errors keeps the errors the keyword adds with AddError. Otherwise a
	// single generic error is reported when the keyword fails.
	Errors bool
	// Modifying allows KeywordContext.Set.
	Modifying bool
	// Valid, when set, overrides the result of the keyword.
	Valid *bool
	// Data allows the keyword value to be a {"$data": pointer}.
	Data bool
	// Dependencies are keywords that must be present in the same schema object.
	Dependencies []string
}

var keywordName = regexp.MustCompile(`(?i)^[a-z_$][a-z0-9_$-]*$`)

// ValidateKeyword checks a keyword definition without registering it.
func ValidateKeyword(name string, def *KeywordDefinition) error {
	if !keywordName.MatchString(name) {
		return fmt.Errorf("invalid keyword name %q", name)
	}
	if def == nil {
		return fmt.Errorf("keyword %q: nil definition", name)
	}
	n := 0
	for _, set := range []bool{def.Validate != nil, def.Compile != nil, def.Macro != nil, def.Inline != nil} {
		if set {
			n++
		}
	}
	if n != 1 {
		return fmt.Errorf("keyword %q: exactly one of Validate, Compile, Macro and Inline must be set", name)
	}
	for _, t := range def.Type {
		if !jsonvalue.IsType(string(t)) {
			return fmt.Errorf("keyword %q: unknown type %q", name, t)
		}
	}
	if def.Data && def.Validate == nil {
		return fmt.Errorf("keyword %q: $data support requires Validate", name)
	}
	if def.MetaSchema != nil && !schemaValue(def.MetaSchema) {
		return fmt.Errorf("keyword %q: meta-schema should be object or boolean", name)
	}
	return nil
}

func schemaValue(v any) bool {
	switch v.(type) {
	case bool, map[string]any:
		return true
	}
	return false
}

// customKeyword is a registered definition with its compiled meta-schema.
type customKeyword struct {
	name string
	def  *KeywordDefinition
	meta *Validator
}

// AddKeyword registers a custom keyword. Schemas compiled earlier are not
// affected.
func (c *Compiler) AddKeyword(name string, def *KeywordDefinition) error {
	if err := ValidateKeyword(name, def); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rules.known[name] {
		return fmt.Errorf("%w: %q", ErrKeywordExists, name)
	}
	ck := &customKeyword{name: name, def: def}
	if def.MetaSchema != nil {
		rec, err := c.addLocked(def.MetaSchema, addRequest{anonymous: true})
		if err != nil {
			return fmt.Errorf("keyword %q meta-schema: %w", name, err)
		}
		if ck.meta, err = c.compileRecord(rec); err != nil {
			return fmt.Errorf("keyword %q meta-schema: %w", name, err)
		}
	}
	c.rules.addCustom(name, ck)
	c.log.Debug("keyword added", "keyword", name)
	return nil
}

// GetKeyword reports whether name is a keyword. The definition is nil for
// built-in keywords.
func (c *Compiler) GetKeyword(name string) (*KeywordDefinition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.rules.custom[name]; ok {
		return r.custom.def, true
	}
	return nil, c.rules.known[name]
}

// RemoveKeyword removes a custom keyword.
func (c *Compiler) RemoveKeyword(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rules.custom[name]; !ok {
		if c.rules.known[name] {
			return fmt.Errorf("keyword %q is built in", name)
		}
		return fmt.Errorf("keyword %q is not defined", name)
	}
	c.rules.removeCustom(name)
	return nil
}

// KeywordCompileContext describes where a custom keyword is being compiled.
type KeywordCompileContext struct {
	Keyword    string
	SchemaPath string
	BaseID     string
	// Composite is set inside not, anyOf, oneOf, if and contains.
	Composite bool
	Async     bool
	Logger    *slog.Logger

	c cctx
}

// Subschema compiles schema as a child of the keyword.
func (it *KeywordCompileContext) Subschema(schema any) (*Subschema, error) {
	fn, err := it.c.child(it.Keyword).compile(schema)
	if err != nil {
		return nil, err
	}
	return &Subschema{fn: fn}, nil
}

// Subschema is a compiled schema used by a custom keyword.
type Subschema struct {
	fn validateFunc
}

// KeywordContext gives a custom keyword access to the validation in progress.
type KeywordContext struct {
	s    *state
	f    *frame
	site *errSite
	def  *KeywordDefinition
}

// Context is the context of an asynchronous validation, or Background.
func (kc *KeywordContext) Context() context.Context {
	if kc.s.ctx == nil {
		return context.Background()
	}
	return kc.s.ctx
}

// InstancePath is the JSON Pointer of the validated value.
func (kc *KeywordContext) InstancePath() string { return kc.f.path }

// ParentData is the object or array holding the value, or nil at the root.
func (kc *KeywordContext) ParentData() any {
	if kc.f.parent == nil {
		return nil
	}
	return kc.f.parent.data
}

// Key is the property name or index of the value in ParentData.
func (kc *KeywordContext) Key() any { return kc.f.key }

// RootData is the whole validated document.
func (kc *KeywordContext) RootData() any { return kc.s.rootData() }

// Set replaces the validated value. The keyword must be Modifying.
func (kc *KeywordContext) Set(v any) error {
	if !kc.def.Modifying {
		return errors.New("keyword is not modifying")
	}
	kc.f.set(v)
	return nil
}

// AddError reports an error for the keyword. It is kept only when the
// definition sets Errors.
func (kc *KeywordContext) AddError(message string, params map[string]any) {
	kc.site.add(kc.s, kc.f, params, message)
}

// Check validates data against a compiled subschema. Errors it reports are
// handled like those of AddError.
func (kc *KeywordContext) Check(sub *Subschema, data any) bool {
	if sub == nil {
		return true
	}
	return sub.fn(kc.s, &frame{data: data, path: kc.f.path})
}

// generate compiles one use of the keyword in schema object m.
func (ck *customKeyword) generate(c cctx, m map[string]any, value any) (validateFunc, error) {
	def := ck.def
	name := ck.name
	for _, dep := range def.Dependencies {
		if _, ok := m[dep]; !ok {
			return nil, c.errorf(name, "parent schema must have all required keywords: %v", def.Dependencies)
		}
	}
	if def.Async && !c.comp.async {
		return nil, &SchemaError{SchemaPath: c.path(name), Keyword: name, Message: "async keyword in sync schema", Err: ErrAsyncSchema}
	}

	if def.Data {
		rp, err := c.dataPointer(value)
		if err != nil {
			return nil, &SchemaError{SchemaPath: c.path(name), Keyword: name, Err: err}
		}
		if rp != nil {
			op := operand{ptr: rp}
			return ck.wrap(c, value, func(kc *KeywordContext, d any) (bool, error) {
				v, ok := op.get(kc.s, kc.f)
				if !ok {
					return true, nil
				}
				if ck.meta != nil {
					if errs, err := ck.meta.Validate(v); err != nil || errs != nil {
						return false, nil
					}
				}
				return def.Validate(kc, v, d)
			}), nil
		}
	}
	if ck.meta != nil {
		errs, err := ck.meta.Validate(value)
		if err != nil {
			return nil, err
		}
		if errs != nil {
			return nil, &SchemaError{SchemaPath: c.path(name), Keyword: name, Message: "keyword value is invalid: " + ErrorsText(errs, WithDataVar("schema"))}
		}
	}

	it := &KeywordCompileContext{
		Keyword:    name,
		SchemaPath: c.path(name),
		BaseID:     c.baseID,
		Composite:  c.composite,
		Async:      c.comp.async,
		Logger:     c.comp.c.log,
		c:          c,
	}
	switch {
	case def.Macro != nil:
		expanded, err := def.Macro(value, m, it)
		if err != nil {
			return nil, &SchemaError{SchemaPath: c.path(name), Keyword: name, Err: err}
		}
		sub := c.sub(name)
		sub.composite = c.composite
		return sub.compile(expanded)
	case def.Compile != nil, def.Inline != nil:
		build := def.Compile
		if build == nil {
			build = def.Inline
		}
		kf, err := build(value, m, it)
		if err != nil {
			return nil, &SchemaError{SchemaPath: c.path(name), Keyword: name, Err: err}
		}
		if kf == nil {
			return nil, nil
		}
		return ck.wrap(c, value, kf), nil
	default:
		return ck.wrap(c, value, func(kc *KeywordContext, d any) (bool, error) {
			return def.Validate(kc, value, d)
		}), nil
	}
}

// wrap turns a keyword function into a validation step.
func (ck *customKeyword) wrap(c cctx, value any, kf KeywordFunc) validateFunc {
	def := ck.def
	site := c.site(ck.name, value)
	return func(s *state, f *frame) bool {
		if def.Async && s.ctx != nil {
			if err := s.ctx.Err(); err != nil {
				return s.fail(err)
			}
		}
		kc := &KeywordContext{s: s, f: f, site: site, def: def}
		mark := len(s.errs)
		ok, err := kf(kc, f.data)
		if err != nil {
			return s.fail(&KeywordError{Keyword: ck.name, SchemaPath: site.schemaPath, Err: err})
		}
		if s.err != nil {
			return false
		}
		if def.Valid != nil {
			ok = *def.Valid
		}
		if ok {
			s.errs = s.errs[:mark]
			return true
		}
		if def.Errors && len(s.errs) > mark {
			return false
		}
		s.errs = s.errs[:mark]
		site.add(s, f, map[string]any{"keyword": ck.name}, fmt.Sprintf("should pass %q keyword validation", ck.name))
		return false
	}
}
