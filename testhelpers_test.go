package jsonschema

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// decode parses a JSON literal the way callers of the package do.
func decode(t *testing.T, s string) any {
	t.Helper()
	v, err := DecodeJSON([]byte(s))
	require.NoError(t, err, "decode %s", s)
	return v
}

func mustCompile(t *testing.T, c *Compiler, schema string) *Validator {
	t.Helper()
	v, err := c.Compile(decode(t, schema))
	require.NoError(t, err)
	return v
}

// quiet returns options that silence schema warnings.
func quiet(opts ...Option) []Option {
	return append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
}

// capture returns an option logging to buf at warning level.
func capture(buf *bytes.Buffer) Option {
	return WithLogger(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

func newCompiler(t *testing.T, opts ...Option) *Compiler {
	t.Helper()
	c, err := New(quiet(opts...)...)
	require.NoError(t, err)
	return c
}

// validate compiles schema on a fresh compiler and validates data.
func validate(t *testing.T, schema, data string, opts ...Option) ValidationErrors {
	t.Helper()
	v := mustCompile(t, newCompiler(t, opts...), schema)
	errs, err := v.Validate(decode(t, data))
	require.NoError(t, err)
	return errs
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
