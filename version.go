package jsonschema

import (
	"fmt"
	"strings"

	"github.com/openbindings/jsonschema-go/resolve"
)

// Draft is a JSON Schema dialect recognised from "$schema".
type Draft int

const (
	DraftUnknown Draft = iota
	Draft04
	Draft06
	Draft07
)

// Meta-schema identifiers of the supported drafts.
const (
	Draft04URI = "http://json-schema.org/draft-04/schema"
	Draft06URI = "http://json-schema.org/draft-06/schema"
	Draft07URI = "http://json-schema.org/draft-07/schema"
)

func (d Draft) String() string {
	switch d {
	case Draft04:
		return "draft-04"
	case Draft06:
		return "draft-06"
	case Draft07:
		return "draft-07"
	}
	return fmt.Sprintf("Draft(%d)", int(d))
}

// URI returns the normalized meta-schema identifier of d.
func (d Draft) URI() string {
	switch d {
	case Draft04:
		return Draft04URI
	case Draft06:
		return Draft06URI
	case Draft07:
		return Draft07URI
	}
	return ""
}

// DraftOf recognises a "$schema" value. The scheme may be http or https and a
// trailing empty fragment is ignored.
func DraftOf(schemaURI string) Draft {
	u := resolve.NormalizeID(strings.TrimSpace(schemaURI))
	u = strings.Replace(u, "https://", "http://", 1)
	switch u {
	case Draft04URI:
		return Draft04
	case Draft06URI:
		return Draft06
	case Draft07URI:
		return Draft07
	}
	return DraftUnknown
}

// metaOf returns the "$schema" of schema, normalized, or "".
func metaOf(schema any) string {
	m, ok := schema.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m["$schema"].(string)
	return resolve.NormalizeID(s)
}

// metaKey returns the registry key used to validate schema: its declared
// meta-schema, with draft-06 folded onto draft-07, or the default draft-07.
func metaKey(schema any) (key string, draft Draft) {
	uri := metaOf(schema)
	if uri == "" {
		return Draft07URI, Draft07
	}
	switch d := DraftOf(uri); d {
	case Draft06, Draft07:
		return Draft07URI, d
	case Draft04:
		return Draft04URI, d
	}
	return uri, DraftUnknown
}
