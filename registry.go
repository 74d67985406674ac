package jsonschema

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/openbindings/jsonschema-go/jsonvalue"
	"github.com/openbindings/jsonschema-go/resolve"
)

type recordState int

const (
	stateUncompiled recordState = iota
	stateCompiling
	stateCompiled
)

// schemaRecord is a registered root schema.
type schemaRecord struct {
	doc         *resolve.Document
	fingerprint string
	meta        bool
	keys        []string

	state     recordState
	validator atomic.Pointer[Validator]
	// dependents are records whose validators call this one.
	dependents map[*schemaRecord]struct{}
}

func newRecord(doc *resolve.Document, fingerprint string, meta bool) *schemaRecord {
	return &schemaRecord{doc: doc, fingerprint: fingerprint, meta: meta, dependents: map[*schemaRecord]struct{}{}}
}

// registry indexes records by key, fingerprint and document. It is guarded by
// the compiler's mutex.
type registry struct {
	byKey         map[string]*schemaRecord
	byFingerprint map[string]*schemaRecord
	byDoc         map[*resolve.Document]*schemaRecord
	anchors       map[string]*schemaRecord
	fragments     map[string]*Validator
}

func newRegistry() *registry {
	return &registry{
		byKey:         map[string]*schemaRecord{},
		byFingerprint: map[string]*schemaRecord{},
		byDoc:         map[*resolve.Document]*schemaRecord{},
		anchors:       map[string]*schemaRecord{},
		fragments:     map[string]*Validator{},
	}
}

// Document implements resolve.Store.
func (r *registry) Document(id string) (*resolve.Document, bool) {
	if rec, ok := r.byKey[id]; ok {
		return rec.doc, true
	}
	return nil, false
}

// Anchor implements resolve.Store.
func (r *registry) Anchor(id string) (*resolve.Document, resolve.Local, bool) {
	rec, ok := r.anchors[id]
	if !ok {
		return nil, resolve.Local{}, false
	}
	loc, ok := rec.doc.Locals[id]
	return rec.doc, loc, ok
}

func (r *registry) lookup(key string) (*schemaRecord, bool) {
	if rec, ok := r.byKey[resolve.NormalizeID(key)]; ok {
		return rec, true
	}
	rec, ok := r.byFingerprint[key]
	return rec, ok
}

// add registers rec under keys. With anonymous set the identifiers declared
// inside the document stay private to it.
func (r *registry) add(rec *schemaRecord, keys []string, anonymous bool) error {
	for _, k := range keys {
		if _, ok := r.byKey[k]; ok {
			return fmt.Errorf("%w: schema with key or id %q already exists", ErrSchemaExists, k)
		}
	}
	if !anonymous {
		for id, loc := range rec.doc.Locals {
			if !shared(id) {
				continue
			}
			if other, ok := r.anchors[id]; ok && other != rec && !jsonvalue.Equal(other.doc.Locals[id].Schema, loc.Schema) {
				return fmt.Errorf("%w: id %q resolves to more than one schema", ErrSchemaExists, id)
			}
		}
	}
	for _, k := range keys {
		r.byKey[k] = rec
	}
	rec.keys = keys
	if !anonymous {
		for id := range rec.doc.Locals {
			if _, ok := r.anchors[id]; !ok && shared(id) {
				r.anchors[id] = rec
			}
		}
	}
	if _, ok := r.byFingerprint[rec.fingerprint]; !ok {
		r.byFingerprint[rec.fingerprint] = rec
	}
	r.byDoc[rec.doc] = rec
	return nil
}

// shared reports whether an identifier declared inside a document is
// visible to other documents. Bare fragments of an anonymous document are not.
func shared(id string) bool {
	return !strings.HasPrefix(id, "#")
}

// remove unregisters rec and evicts everything compiled against it.
func (r *registry) remove(rec *schemaRecord) {
	for _, k := range rec.keys {
		if r.byKey[k] == rec {
			delete(r.byKey, k)
		}
	}
	for id, owner := range r.anchors {
		if owner == rec {
			delete(r.anchors, id)
		}
	}
	delete(r.byDoc, rec.doc)
	if r.byFingerprint[rec.fingerprint] == rec {
		delete(r.byFingerprint, rec.fingerprint)
		// Another key may hold the same body.
		for _, other := range r.byDoc {
			if other.fingerprint == rec.fingerprint {
				r.byFingerprint[rec.fingerprint] = other
				break
			}
		}
	}
	r.evict(rec, map[*schemaRecord]bool{})
	clear(r.fragments)
}

func (r *registry) evict(rec *schemaRecord, seen map[*schemaRecord]bool) {
	if seen[rec] {
		return
	}
	seen[rec] = true
	rec.validator.Store(nil)
	rec.state = stateUncompiled
	for dep := range rec.dependents {
		r.evict(dep, seen)
	}
	clear(rec.dependents)
}

func (r *registry) records() []*schemaRecord {
	out := make([]*schemaRecord, 0, len(r.byDoc))
	for _, rec := range r.byDoc {
		out = append(out, rec)
	}
	return out
}
