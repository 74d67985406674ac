// Package formats holds the string format checkers used by the "format" keyword.
//
// Two modes are provided. Fast uses anchored regular expressions only, so a
// value like "2019-02-30" passes "date". Full additionally checks calendar and
// clock ranges and parses URIs and addresses, and registers the
// internationalized formats.
package formats

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/openbindings/jsonschema-go/jsonvalue"
)

// Mode selects the default format set.
type Mode int

const (
	Fast Mode = iota
	Full
)

func (m Mode) String() string {
	switch m {
	case Fast:
		return "fast"
	case Full:
		return "full"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "fast" or "full".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast", "":
		return Fast, nil
	case "full":
		return Full, nil
	}
	return Fast, fmt.Errorf("formats: unknown mode %q", s)
}

// Format checks values of one named format.
type Format struct {
	// Type is the instance type the format applies to; other types pass.
	// The zero value means string.
	Type jsonvalue.Type
	// Validate reports whether v conforms. It receives string values for
	// string formats and float64 values for number formats.
	Validate func(v any) bool
}

// AppliesTo reports whether the format checks values of data's type.
func (f Format) AppliesTo(data any) bool {
	t := f.Type
	if t == "" {
		t = jsonvalue.String
	}
	return jsonvalue.Is(data, t)
}

// Check validates data. Values of other types always pass.
func (f Format) Check(data any) bool {
	if f.Validate == nil || !f.AppliesTo(data) {
		return true
	}
	if f.Type == jsonvalue.Number || f.Type == jsonvalue.Integer {
		n, _ := jsonvalue.ToFloat(data)
		return f.Validate(n)
	}
	return f.Validate(data)
}

// String builds a string format from a predicate.
func String(fn func(string) bool) Format {
	return Format{Type: jsonvalue.String, Validate: func(v any) bool {
		s, ok := v.(string)
		return ok && fn(s)
	}}
}

// Regexp builds a string format from a pattern.
func Regexp(re *regexp.Regexp) Format {
	return String(re.MatchString)
}

// Registry is a concurrency-safe set of named formats.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Format
}

// NewRegistry returns a registry pre-populated with the formats of mode.
func NewRegistry(mode Mode) *Registry {
	return &Registry{m: Defaults(mode)}
}

// Add registers or replaces a format.
func (r *Registry) Add(name string, f Format) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("formats: empty name")
	}
	if f.Validate == nil {
		return fmt.Errorf("formats: %q has no validate function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[name] = f
	return nil
}

// Lookup returns the named format.
func (r *Registry) Lookup(name string) (Format, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.m[name]
	return f, ok
}

// Names lists the registered formats in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.m))
	for k := range r.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Defaults returns a fresh map of the built-in formats for mode.
func Defaults(mode Mode) map[string]Format {
	out := map[string]Format{
		"uuid":                      String(isUUID),
		"regex":                     String(isRegex),
		"json-pointer":              Regexp(jsonPointerRe),
		"json-pointer-uri-fragment": Regexp(jsonPointerFragmentRe),
		"relative-json-pointer":     Regexp(relativeJSONPointerRe),
		"uri-template":              Regexp(uriTemplateRe),
		"hostname":                  String(isHostname),
	}
	if mode == Full {
		out["date"] = String(isDate)
		out["time"] = String(isTime)
		out["date-time"] = String(isDateTime)
		out["uri"] = String(isURI)
		out["uri-reference"] = String(isURIReference)
		out["url"] = String(isURL)
		out["email"] = String(isEmail)
		out["ipv4"] = String(isIPv4)
		out["ipv6"] = String(isIPv6)
		for name, fn := range extraFull() {
			out[name] = Format{Type: jsonvalue.String, Validate: fn}
		}
		return out
	}
	out["date"] = Regexp(fastDateRe)
	out["time"] = Regexp(fastTimeRe)
	out["date-time"] = Regexp(fastDateTimeRe)
	out["uri"] = Regexp(fastURIRe)
	out["uri-reference"] = Regexp(fastURIReferenceRe)
	out["url"] = String(isURL)
	out["email"] = Regexp(fastEmailRe)
	out["ipv4"] = Regexp(fastIPv4Re)
	out["ipv6"] = String(isIPv6)
	return out
}
