package jsonschema

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/openbindings/jsonschema-go/canonicaljson"
	"github.com/openbindings/jsonschema-go/formats"
	"github.com/openbindings/jsonschema-go/jsonvalue"
	"github.com/openbindings/jsonschema-go/resolve"
)

// Compiler compiles schemas into validators and owns the schema registry,
// the format registry and the custom keywords. All methods are safe for
// concurrent use. Compilation is serialized; validation is not.
//
// Custom keyword functions run while the compiler is locked and must not call
// back into it.
type Compiler struct {
	opts     Options
	metaOpts Options
	log      *slog.Logger

	mu       sync.Mutex
	reg      *registry
	rules    *ruleTable
	formats  *formats.Registry
	resolver *resolve.Resolver

	compiles singleflight.Group
	loads    singleflight.Group
}

// New returns a Compiler configured by opts.
func New(opts ...Option) (*Compiler, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.check(); err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	mode := formats.Fast
	if o.Format == FormatFull {
		mode = formats.Full
	}
	c := &Compiler{
		opts:    o,
		log:     log,
		reg:     newRegistry(),
		rules:   newRuleTable(o.Nullable),
		formats: formats.NewRegistry(mode),
	}
	c.metaOpts = metaOptions(o)
	c.resolver = &resolve.Resolver{Store: c.reg, IDs: o.SchemaID}
	if o.Meta {
		if err := c.addMetaSchema(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New that panics on invalid options.
func MustNew(opts ...Option) *Compiler {
	c, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Options returns the options the compiler was built with.
func (c *Compiler) Options() Options { return c.opts }

// metaOptions are used to compile meta-schemas: no instance mutation and
// every error reported.
func metaOptions(o Options) Options {
	m := o
	m.AllErrors = true
	m.CoerceTypes = CoerceOff
	m.RemoveAdditional = RemoveOff
	m.UseDefaults = DefaultsOff
	m.StrictKeywords = StrictOff
	m.StrictDefaults = StrictOff
	m.ValidateSchema = StrictOff
	m.ExtendRefs = ExtendRefsIgnore
	m.MissingRefs = MissingRefsFail
	m.Data = false
	m.UnknownFormats = UnknownFormatsIgnore
	return m
}

// addRequest describes one registration.
type addRequest struct {
	key  string
	meta bool
	// skipCheck bypasses meta-schema validation.
	skipCheck bool
	// anonymous keeps the schema reachable by fingerprint only.
	anonymous bool
}

// normalizeSchema accepts decoded JSON and checks that it is a schema value.
func normalizeSchema(schema any) (any, error) {
	v, err := jsonvalue.Normalize(schema)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	switch v.(type) {
	case bool, map[string]any:
		return v, nil
	}
	return nil, &SchemaError{Message: fmt.Sprintf("schema should be object or boolean, got %s", jsonvalue.TypeOf(v))}
}

// AddSchema registers schema under key, or under its declared identifier
// when key is empty. A []any of schemas registers each one.
func (c *Compiler) AddSchema(schema any, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if list, ok := schema.([]any); ok && key == "" {
		for _, s := range list {
			if _, err := c.addLocked(s, addRequest{}); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := c.addLocked(schema, addRequest{key: key})
	return err
}

// AddMetaSchema registers a meta-schema. Meta-schemas are compiled with
// options that never modify the validated schema.
func (c *Compiler) AddMetaSchema(schema any, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.addLocked(schema, addRequest{key: key, meta: true, skipCheck: true})
	return err
}

func (c *Compiler) addLocked(schema any, req addRequest) (*schemaRecord, error) {
	schema, err := normalizeSchema(schema)
	if err != nil {
		return nil, err
	}
	declared, err := c.opts.SchemaID.Of(schema)
	if err != nil {
		return nil, &SchemaError{Keyword: "$id", Err: err}
	}
	declared = resolve.NormalizeID(resolve.ResolveURL("", declared))
	key := resolve.NormalizeID(req.key)

	var keys []string
	if !req.anonymous {
		if key != "" {
			keys = append(keys, key)
		}
		if declared != "" && declared != key {
			keys = append(keys, declared)
		}
		for _, k := range keys {
			if _, ok := c.reg.byKey[k]; ok {
				return nil, fmt.Errorf("%w: schema with key or id %q already exists", ErrSchemaExists, k)
			}
		}
	}
	if !req.skipCheck {
		if err := c.checkSchemaLocked(schema); err != nil {
			return nil, err
		}
	}
	fp, err := canonicaljson.Fingerprint(schema)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	docID := declared
	if docID == "" {
		docID = key
	}
	doc, err := resolve.NewDocument(schema, docID, c.opts.SchemaID)
	if err != nil {
		return nil, &SchemaError{Keyword: "$id", Err: err}
	}
	rec := newRecord(doc, fp, req.meta)
	if err := c.reg.add(rec, keys, req.anonymous); err != nil {
		return nil, err
	}
	c.log.Debug("schema added", "id", doc.ID, "fingerprint", fp, "meta", req.meta)
	return rec, nil
}

// Compile compiles schema. Compiling the same schema again returns the cached
// validator. A "$async" schema must go through CompileAsync.
func (c *Compiler) Compile(schema any) (*Validator, error) {
	v, err := c.compile(schema)
	if err != nil {
		return nil, err
	}
	if v.async {
		return nil, &SchemaError{Keyword: "$async", Message: "use CompileAsync", Err: ErrAsyncSchema}
	}
	return v, nil
}

func (c *Compiler) compile(schema any) (*Validator, error) {
	schema, err := normalizeSchema(schema)
	if err != nil {
		return nil, err
	}
	fp, err := canonicaljson.Fingerprint(schema)
	if err != nil {
		return nil, &SchemaError{Err: err}
	}
	res, err, _ := c.compiles.Do(fp, func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		rec, ok := c.reg.byFingerprint[fp]
		if !ok {
			if rec, err = c.addLocked(schema, addRequest{anonymous: !c.opts.AddUsedSchema}); err != nil {
				return nil, err
			}
		}
		return c.compileRecord(rec)
	})
	if err != nil {
		return nil, err
	}
	return res.(*Validator), nil
}

// compileRecord returns the validator of rec, compiling it if needed. The
// caller holds c.mu.
func (c *Compiler) compileRecord(rec *schemaRecord) (*Validator, error) {
	return c.compileRecordAt(rec, nil)
}

// compileRecordAt is compileRecord for a record reached by $ref. sameData
// holds the targets already being compiled for the same instance location.
func (c *Compiler) compileRecordAt(rec *schemaRecord, sameData []slotKey) (*Validator, error) {
	switch rec.state {
	case stateCompiled:
		return rec.validator.Load(), nil
	case stateCompiling:
		return nil, fmt.Errorf("schema %s is already being compiled", rec.doc.ID)
	}
	rec.state = stateCompiling
	opts := &c.opts
	if rec.meta {
		opts = &c.metaOpts
	}
	v, err := c.compileAt(rec, rec.doc, "", rec.doc.ID, rec.doc.Schema, opts, sameData)
	if err != nil {
		// Records compiled meanwhile may forward to rec.
		c.reg.evict(rec, map[*schemaRecord]bool{})
		return nil, err
	}
	v.fingerprint = rec.fingerprint
	rec.validator.Store(v)
	rec.state = stateCompiled
	c.log.Debug("schema compiled", "id", rec.doc.ID, "refs", len(v.refs))
	return v, nil
}

// compileAt compiles the schema found at ptr inside doc.
func (c *Compiler) compileAt(rec *schemaRecord, doc *resolve.Document, ptr, base string, schema any, opts *Options, sameData []slotKey) (*Validator, error) {
	comp := &compilation{
		c:        c,
		opts:     opts,
		rootDoc:  doc,
		rootPtr:  ptr,
		async:    isAsync(schema),
		self:     rec,
		slots:    map[slotKey]*refSlot{},
		refIndex: map[string]int{},
		patterns: map[string]*regexp.Regexp{},
	}
	root := &refSlot{}
	key := slotKey{doc: doc, ptr: ptr, base: base}
	comp.slots[key] = root
	top := cctx{comp: comp, doc: doc, baseID: base, ptr: ptr, idApplied: true, sameData: sameData}
	top.sameData = top.entering(key)
	fn, err := top.compile(schema)
	if err != nil {
		return nil, err
	}
	root.fn = fn
	id := ""
	if ptr == "" {
		id = doc.ID
	}
	return &Validator{
		schema: schema,
		id:     id,
		async:  comp.async,
		doc:    doc,
		fn:     fn,
		refs:   comp.refs,
		source: comp.src.String(),
	}, nil
}

// GetSchema returns the validator registered under key. A key may also be a
// fingerprint, or a reference into a registered schema such as
// "http://example.com/s.json#/definitions/a".
func (c *Compiler) GetSchema(key string) (*Validator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.reg.lookup(key); ok {
		return c.compileRecord(rec)
	}
	norm := resolve.NormalizeID(key)
	if v, ok := c.reg.fragments[norm]; ok {
		return v, nil
	}
	t, err := c.resolver.Resolve(nil, "", key)
	if err != nil {
		var mr *MissingRefError
		if errors.As(err, &mr) {
			return nil, fmt.Errorf("%w: %q", ErrNoSchema, key)
		}
		return nil, err
	}
	opts := &c.opts
	if rec := c.reg.byDoc[t.Doc]; rec != nil && rec.meta {
		opts = &c.metaOpts
	}
	v, err := c.compileAt(nil, t.Doc, t.Pointer, t.BaseID, t.Schema, opts, nil)
	if err != nil {
		return nil, err
	}
	if v.fingerprint, err = canonicaljson.Fingerprint(t.Schema); err != nil {
		return nil, &SchemaError{Err: err}
	}
	c.reg.fragments[norm] = v
	return v, nil
}

// Validate validates data against a schema value or a registered key.
func (c *Compiler) Validate(schemaOrKey any, data any) (ValidationErrors, error) {
	var v *Validator
	var err error
	if key, ok := schemaOrKey.(string); ok {
		v, err = c.GetSchema(key)
	} else {
		v, err = c.Compile(schemaOrKey)
	}
	if err != nil {
		return nil, err
	}
	return v.Validate(data)
}

// RemoveSchema unregisters schemas. Arguments may be keys, fingerprints,
// *regexp.Regexp patterns matched against keys, or schema values. With no
// arguments every schema except meta-schemas is removed. Validators compiled
// against a removed schema are evicted from the cache.
func (c *Compiler) RemoveSchema(args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(args) == 0 {
		for _, rec := range c.reg.records() {
			if !rec.meta {
				c.reg.remove(rec)
			}
		}
		return
	}
	for _, arg := range args {
		switch x := arg.(type) {
		case string:
			if rec, ok := c.reg.lookup(x); ok {
				c.reg.remove(rec)
			}
			delete(c.reg.fragments, resolve.NormalizeID(x))
		case *regexp.Regexp:
			for k, rec := range c.reg.byKey {
				if x.MatchString(k) {
					c.reg.remove(rec)
				}
			}
		default:
			schema, err := normalizeSchema(x)
			if err != nil {
				continue
			}
			fp, err := canonicaljson.Fingerprint(schema)
			if err != nil {
				continue
			}
			if rec, ok := c.reg.byFingerprint[fp]; ok {
				c.reg.remove(rec)
			}
		}
	}
}

// AddFormat registers or replaces a format checker.
func (c *Compiler) AddFormat(name string, f formats.Format) error {
	return c.formats.Add(name, f)
}
