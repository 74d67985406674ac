package jsonschema

import (
	"errors"
	"fmt"

	"github.com/openbindings/jsonschema-go/resolve"
)

var (
	// ErrSchemaExists is returned when a key or identifier is registered twice.
	ErrSchemaExists = errors.New("schema already exists")
	// ErrAsyncSchema is returned when a $async schema is used synchronously, or the reverse.
	ErrAsyncSchema = errors.New("async schema")
	// ErrNoSchema is returned when a key names no registered schema.
	ErrNoSchema = errors.New("no schema")
	// ErrKeywordExists is returned by AddKeyword for a name already in use.
	ErrKeywordExists = errors.New("keyword already defined")
)

// MissingRefError reports a $ref that the registry cannot resolve.
type MissingRefError = resolve.MissingRefError

// SchemaError indicates a schema that cannot be compiled regardless of the
// instance: a malformed keyword value, a duplicate identifier, an unknown
// keyword under strict mode, or an unresolved reference.
type SchemaError struct {
	// SchemaPath locates the offending keyword ("#/properties/a/maximum").
	SchemaPath string
	Keyword    string
	Message    string
	Err        error
}

func (e *SchemaError) Error() string {
	if e == nil {
		return "schema error"
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.SchemaPath == "" {
		return fmt.Sprintf("schema error: %s", msg)
	}
	return fmt.Sprintf("schema error at %s: %s", e.SchemaPath, msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ValidationFailedError is returned by asynchronous validation of invalid data.
type ValidationFailedError struct {
	Errors ValidationErrors
}

func (e *ValidationFailedError) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return "validation failed"
	}
	return "validation failed: " + ErrorsText(e.Errors)
}

// KeywordError wraps a failure of a custom keyword's own function. It is
// never turned into a validation error.
type KeywordError struct {
	Keyword    string
	SchemaPath string
	Err        error
}

func (e *KeywordError) Error() string {
	if e == nil {
		return "keyword error"
	}
	return fmt.Sprintf("keyword %q at %s: %v", e.Keyword, e.SchemaPath, e.Err)
}

func (e *KeywordError) Unwrap() error { return e.Err }
