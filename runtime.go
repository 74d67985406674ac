package jsonschema

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/openbindings/jsonschema-go/jsonvalue"
	"github.com/openbindings/jsonschema-go/resolve"
)

// validateFunc is one compiled validation step. It reports validity and
// appends errors to the state.
type validateFunc func(s *state, f *frame) bool

func alwaysValid(*state, *frame) bool { return true }

// state is owned by one validation call.
type state struct {
	ctx  context.Context
	errs ValidationErrors
	// err is a failure of the validator itself; it wins over any result.
	err  error
	top  *frame
	root any
}

func (s *state) fail(err error) bool {
	if s.err == nil {
		s.err = err
	}
	return false
}

// rootData is the document absolute $data pointers resolve from.
func (s *state) rootData() any {
	if s.root != nil {
		return s.root
	}
	return s.top.data
}

// frame is one instance position. Frames are linked to their container so
// coerced and defaulted values can be written back and $data can climb.
type frame struct {
	data   any
	parent *frame
	key    any
	path   string
}

func (f *frame) child(key any, v any) *frame {
	var p string
	switch k := key.(type) {
	case string:
		p = jsonvalue.AppendToken(f.path, k)
	case int:
		p = jsonvalue.AppendIndex(f.path, k)
	}
	return &frame{data: v, parent: f, key: key, path: p}
}

// set replaces the value at f, in its container too.
func (f *frame) set(v any) {
	f.data = v
	if f.parent == nil {
		return
	}
	switch c := f.parent.data.(type) {
	case map[string]any:
		if k, ok := f.key.(string); ok {
			c[k] = v
		}
	case []any:
		if i, ok := f.key.(int); ok && i >= 0 && i < len(c) {
			c[i] = v
		}
	}
}

// lookup resolves a $data pointer from f. The second result is false when
// the pointer leads nowhere.
func (f *frame) lookup(s *state, rp jsonvalue.RelativePointer) (any, bool) {
	if rp.Absolute {
		return jsonvalue.Get(s.rootData(), rp.Tokens)
	}
	cur := f
	for i := 0; i < rp.Up; i++ {
		if cur.parent == nil {
			return nil, false
		}
		cur = cur.parent
	}
	if rp.Key {
		if cur.key == nil {
			return nil, false
		}
		return cur.key, true
	}
	return jsonvalue.Get(cur.data, rp.Tokens)
}

// errSite is where a keyword reports errors from.
type errSite struct {
	keyword    string
	schemaPath string
	schema     any
	parent     map[string]any
	verbose    bool
}

func (e *errSite) add(s *state, f *frame, params map[string]any, msg string) {
	if params == nil {
		params = map[string]any{}
	}
	ve := &ValidationError{
		Keyword:      e.keyword,
		InstancePath: f.path,
		SchemaPath:   e.schemaPath,
		Params:       params,
		Message:      msg,
	}
	if e.verbose {
		ve.Schema = e.schema
		ve.ParentSchema = e.parent
		ve.Data = f.data
	}
	s.errs = append(s.errs, ve)
}

// rebaseErrors makes the schema paths reported by another document's
// validator absolute, then relative again when they point into root.
func rebaseErrors(errs ValidationErrors, docID, rootID string) {
	for _, e := range errs {
		if docID != "" && strings.HasPrefix(e.SchemaPath, "#") {
			e.SchemaPath = docID + e.SchemaPath
		}
		if rootID != "" && strings.HasPrefix(e.SchemaPath, rootID+"#") {
			e.SchemaPath = e.SchemaPath[len(rootID):]
		}
	}
}

// Validator is a compiled schema. Validate is safe for concurrent use; the
// error list is part of each call's result.
type Validator struct {
	schema      any
	id          string
	fingerprint string
	async       bool
	doc         *resolve.Document
	fn          validateFunc
	refs        []RefEntry
	source      string

	mu   sync.Mutex
	errs ValidationErrors
}

// Validate validates data. Invalid data yields a non-nil error list and a nil
// error; the error return is reserved for failures of the validator itself,
// such as a custom keyword returning an error.
func (v *Validator) Validate(data any) (ValidationErrors, error) {
	_, errs, err := v.ValidateIn(Location{}, data)
	return errs, err
}

// ValidateIn validates data found at loc and returns the data after coercion
// and default insertion.
func (v *Validator) ValidateIn(loc Location, data any) (any, ValidationErrors, error) {
	if v.async {
		return nil, nil, fmt.Errorf("%w: use CompileAsync to validate with this schema", ErrAsyncSchema)
	}
	return v.run(context.Background(), loc, data)
}

func (v *Validator) run(ctx context.Context, loc Location, data any) (any, ValidationErrors, error) {
	top := &frame{data: data, path: loc.InstancePath}
	if loc.Parent != nil {
		top.parent = &frame{data: loc.Parent}
		top.key = loc.Key
	}
	s := &state{ctx: ctx, top: top, root: loc.Root}
	ok := v.fn(s, top)
	if s.err != nil {
		return top.data, nil, s.err
	}
	var errs ValidationErrors
	if !ok {
		errs = s.errs
	}
	v.mu.Lock()
	v.errs = errs
	v.mu.Unlock()
	return top.data, errs, nil
}

// Errors returns the errors of the most recent Validate call.
func (v *Validator) Errors() ValidationErrors {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errs
}

// Schema returns the compiled schema value.
func (v *Validator) Schema() any { return v.schema }

// ID returns the identifier of the compiled schema, or "".
func (v *Validator) ID() string { return v.id }

// Fingerprint returns the canonical fingerprint of the compiled schema.
func (v *Validator) Fingerprint() string { return v.fingerprint }

// Async reports whether the schema is marked "$async": true.
func (v *Validator) Async() bool { return v.async }

// Refs returns the reference table in the order references were compiled.
func (v *Validator) Refs() []RefEntry {
	out := make([]RefEntry, len(v.refs))
	copy(out, v.refs)
	return out
}

// Source returns an indented listing of the compiled steps.
func (v *Validator) Source() string { return v.source }

// AsAsync wraps v for asynchronous validation.
func (v *Validator) AsAsync() *AsyncValidator { return &AsyncValidator{v: v} }

// AsyncValidator validates with a context; asynchronous custom keywords
// observe its cancellation.
type AsyncValidator struct {
	v *Validator
}

// Validate returns the (possibly coerced) data, or a *ValidationFailedError
// carrying the error list.
func (a *AsyncValidator) Validate(ctx context.Context, data any) (any, error) {
	out, errs, err := a.v.run(ctx, Location{}, data)
	if err != nil {
		return nil, err
	}
	if errs != nil {
		return nil, &ValidationFailedError{Errors: errs}
	}
	return out, nil
}

// Validator returns the underlying compiled schema.
func (a *AsyncValidator) Validator() *Validator { return a.v }
