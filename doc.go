// Package jsonschema compiles JSON Schema (draft-07, with draft-06 and
// draft-04 compatibility) into reusable validators.
//
// Schemas and instances are decoded JSON values: map[string]any, []any,
// string, bool, nil and numbers (float64, json.Number or Go integers).
//
// # Quick Start
//
//	c, err := jsonschema.New(jsonschema.WithAllErrors())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := c.Compile(schema)
//	if err != nil {
//	    log.Fatal(err) // *SchemaError
//	}
//	errs, err := v.Validate(data)
//	if err != nil {
//	    log.Fatal(err) // a custom keyword failed
//	}
//	if errs != nil {
//	    fmt.Println(jsonschema.ErrorsText(errs))
//	}
//
// # References
//
// "$ref" is resolved against the base URI established by "$id" (or "id")
// and against every schema registered with AddSchema. A reference may point
// into another registered document, into itself, or form cycles through any
// number of documents. Targets without references are compiled in place of
// the "$ref"; other targets are compiled once per validator and called.
//
// Each compiled schema is cached under its canonical JSON fingerprint
// (RFC 8785), so compiling an equal schema twice returns the same Validator.
//
// # Mutation
//
// Type coercion (WithCoerceTypes), default insertion (WithUseDefaults) and
// additional property removal (WithRemoveAdditional) modify the validated
// instance in place. A coerced root scalar is returned by ValidateIn and
// AsyncValidator.Validate.
//
// # Concurrency
//
// A Compiler may be used from multiple goroutines. A Validator may validate
// concurrently; the per-call error list is returned, and Errors reports the
// most recent one.
//
// # Subpackages
//
//   - canonicaljson: RFC 8785 (JCS) deterministic JSON serialization
//   - formats: the "format" checkers in fast and full modes
//   - jsonvalue: JSON types, equality and JSON Pointers over decoded values
//   - resolve: identifier scopes and "$ref" resolution
//   - keywords: optional custom keywords (range, regexp, expr, ...)
package jsonschema
