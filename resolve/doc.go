// Package resolve resolves JSON Schema references.
//
// This package is:
// - pure (no file/network IO; the loader seam lives in the caller)
// - deterministic (the same store and reference always give the same target)
//
// It normalizes $id/$ref URIs, indexes the identifiers declared inside a schema
// document, walks JSON Pointer fragments while tracking the effective base URI,
// and decides whether a resolved target is small enough to be inlined.
package resolve
