package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// Document is a registered root schema together with its identifier index.
type Document struct {
	// ID is the normalized absolute identifier of the document, or "" when anonymous.
	ID     string
	Schema any
	// Locals maps every identifier declared inside Schema to its location.
	Locals map[string]Local
}

// NewDocument indexes schema. id, when non-empty, overrides the identifier
// declared at the root.
func NewDocument(schema any, id string, kw IDKeyword) (*Document, error) {
	declared, err := kw.Of(schema)
	if err != nil {
		return nil, err
	}
	base := NormalizeID(id)
	if base == "" {
		base = ResolveURL("", declared)
	}
	locals, err := IndexIDs(schema, base, kw)
	if err != nil {
		return nil, err
	}
	return &Document{ID: base, Schema: schema, Locals: locals}, nil
}

// Store gives the resolver access to every registered document.
type Store interface {
	// Document returns the document registered under the normalized id.
	Document(id string) (*Document, bool)
	// Anchor looks up an identifier declared anywhere in a registered document.
	Anchor(id string) (*Document, Local, bool)
}

// Target is the result of resolving a reference.
type Target struct {
	Schema any
	// Doc is the document that contains Schema.
	Doc *Document
	// BaseID is the base URI in effect at Schema.
	BaseID string
	// Pointer is the JSON Pointer of Schema from Doc.Schema.
	Pointer string
}

// MissingRefError reports a reference that cannot be resolved against the store.
type MissingRefError struct {
	BaseID string
	Ref    string
	// MissingRef is the normalized absolute form of Ref.
	MissingRef string
	// MissingSchema is MissingRef without its fragment: the document a loader should fetch.
	MissingSchema string
}

func (e *MissingRefError) Error() string {
	if e == nil {
		return "missing ref"
	}
	if e.BaseID == "" {
		return fmt.Sprintf("can't resolve reference %s", e.Ref)
	}
	return fmt.Sprintf("can't resolve reference %s from id %s", e.Ref, e.BaseID)
}

// ErrRefLoop is returned when following $ref while walking a pointer revisits a location.
var ErrRefLoop = errors.New("reference loop")

// scopeOpaque keywords hold names, not schemas: a "$id" key directly below
// them is a property name and never re-anchors the base URI.
var scopeOpaque = map[string]bool{
	"properties": true, "patternProperties": true, "enum": true,
	"dependencies": true, "definitions": true,
}

// dataKeywords hold instance values; nothing below them is a schema.
var dataKeywords = map[string]bool{
	"enum": true, "const": true, "default": true, "examples": true,
}

// Resolver resolves references against a Store.
type Resolver struct {
	Store Store
	IDs   IDKeyword
}

// Resolve resolves ref found at a location whose base URI is baseID inside current.
func (r *Resolver) Resolve(current *Document, baseID, ref string) (*Target, error) {
	return r.resolve(current, baseID, ref, map[string]bool{})
}

func (r *Resolver) resolve(current *Document, baseID, ref string, seen map[string]bool) (*Target, error) {
	abs := ResolveURL(baseID, ref)
	missing := func() error {
		return &MissingRefError{BaseID: baseID, Ref: ref, MissingRef: abs, MissingSchema: NormalizeID(FullPath(abs))}
	}

	if current != nil {
		if loc, ok := current.Locals[abs]; ok {
			return &Target{Schema: loc.Schema, Doc: current, BaseID: loc.BaseID, Pointer: loc.Pointer}, nil
		}
	}
	if r.Store != nil {
		if doc, loc, ok := r.Store.Anchor(abs); ok {
			return &Target{Schema: loc.Schema, Doc: doc, BaseID: loc.BaseID, Pointer: loc.Pointer}, nil
		}
	}

	// The path may name a whole document or a sub-schema that re-anchors
	// itself with an id; in the latter case the fragment is walked from there.
	path, frag := Split(abs)
	path = NormalizeID(path)
	var doc *Document
	prefix := ""
	if current != nil && path == current.ID {
		doc = current
	} else if loc, ok := lookupLocal(current, path); ok {
		doc, prefix = current, loc.Pointer
	} else if r.Store != nil {
		if d, ok := r.Store.Document(path); ok {
			doc = d
		} else if d, loc, ok := r.Store.Anchor(path); ok {
			doc, prefix = d, loc.Pointer
		}
	}
	if doc == nil {
		return nil, missing()
	}

	if frag == "" {
		return &Target{Schema: doc.Schema, Doc: doc, BaseID: doc.ID}, nil
	}
	if !strings.HasPrefix(frag, "/") {
		return nil, missing()
	}
	t, err := r.walk(doc, prefix+frag, seen)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, missing()
		}
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return t, nil
}

func lookupLocal(doc *Document, id string) (Local, bool) {
	if doc == nil {
		return Local{}, false
	}
	loc, ok := doc.Locals[id]
	return loc, ok
}

var errNotFound = errors.New("pointer not found")

// walk applies a JSON pointer from doc's root, re-deriving the base URI at
// every schema that declares an identifier and following $ref met before the
// last token.
func (r *Resolver) walk(doc *Document, pointer string, seen map[string]bool) (*Target, error) {
	key := doc.ID + "#" + pointer
	if seen[key] {
		return nil, ErrRefLoop
	}
	seen[key] = true

	toks, err := jsonvalue.SplitPointer(pointer)
	if err != nil {
		return nil, err
	}
	cur := doc.Schema
	base := doc.ID
	ptr := ""
	nameNext, inData := false, false
	for i, tok := range toks {
		switch x := cur.(type) {
		case map[string]any:
			nxt, ok := x[tok]
			if !ok {
				return nil, errNotFound
			}
			cur = nxt
		case []any:
			nxt, ok := jsonvalue.Get(x, []string{tok})
			if !ok {
				return nil, errNotFound
			}
			cur = nxt
		default:
			return nil, errNotFound
		}
		ptr = jsonvalue.AppendToken(ptr, tok)
		isName := nameNext
		nameNext = false
		if inData {
			continue
		}
		if !isName && dataKeywords[tok] {
			inData = true
			continue
		}
		if !isName && scopeOpaque[tok] {
			nameNext = true
			continue
		}
		if id, _ := r.IDs.Of(cur); id != "" {
			base = ResolveURL(base, id)
		}
		m, ok := cur.(map[string]any)
		if !ok || i == len(toks)-1 {
			continue
		}
		ref, ok := m["$ref"].(string)
		if !ok {
			continue
		}
		rest := "/" + strings.Join(escapeAll(toks[i+1:]), "/")
		t, err := r.resolve(doc, base, ref, seen)
		if err != nil {
			return nil, err
		}
		return r.walk(t.Doc, t.Pointer+rest, seen)
	}
	return &Target{Schema: cur, Doc: doc, BaseID: base, Pointer: ptr}, nil
}

func escapeAll(toks []string) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = jsonvalue.EscapeToken(t)
	}
	return out
}
