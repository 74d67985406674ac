package jsonschema

import (
	"strings"
)

// ValidationError describes one keyword failure.
type ValidationError struct {
	Keyword string `json:"keyword"`
	// InstancePath is the JSON Pointer of the failing value.
	InstancePath string `json:"instancePath"`
	// SchemaPath locates the failing keyword. It is relative to the validated
	// document ("#/properties/a/type") and carries the document identifier when
	// the keyword lives in another document.
	SchemaPath string         `json:"schemaPath"`
	Params     map[string]any `json:"params"`
	Message    string         `json:"message"`

	// Set when the compiler is Verbose.
	Schema       any            `json:"schema,omitempty"`
	ParentSchema map[string]any `json:"parentSchema,omitempty"`
	Data         any            `json:"data,omitempty"`
}

// ValidationErrors is the ordered error list of one validation. It is nil when
// the instance is valid.
type ValidationErrors []*ValidationError

func (errs ValidationErrors) Error() string {
	return ErrorsText(errs)
}

type textOptions struct {
	separator string
	dataVar   string
}

// TextOption configures ErrorsText.
type TextOption func(*textOptions)

// WithSeparator sets the string placed between errors (default ", ").
func WithSeparator(sep string) TextOption {
	return func(o *textOptions) { o.separator = sep }
}

// WithDataVar sets the name printed before each instance path (default "data").
func WithDataVar(name string) TextOption {
	return func(o *textOptions) { o.dataVar = name }
}

// ErrorsText joins "{dataVar}{instancePath} {message}" for every error.
func ErrorsText(errs ValidationErrors, opts ...TextOption) string {
	if len(errs) == 0 {
		return "No errors"
	}
	o := textOptions{separator: ", ", dataVar: "data"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	var b strings.Builder
	for i, e := range errs {
		if i > 0 {
			b.WriteString(o.separator)
		}
		b.WriteString(o.dataVar)
		b.WriteString(e.InstancePath)
		b.WriteByte(' ')
		b.WriteString(e.Message)
	}
	return b.String()
}

// Location places an instance inside an enclosing document. Parent and Key
// let coercion and defaults write the changed value back.
type Location struct {
	InstancePath string
	Parent       any
	// Key is a string for object parents and an int for array parents.
	Key any
	// Root is the whole document, used by absolute $data pointers. It defaults
	// to the instance itself.
	Root any
}

// RefEntry describes one entry of a validator's reference table.
type RefEntry struct {
	// Ref is the normalized absolute reference.
	Ref    string
	Schema any
	// Inlined is set when the target was compiled in place of the $ref.
	Inlined bool
	// Validator is set when the target is another registered schema.
	Validator *Validator
}
