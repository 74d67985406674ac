// Package canonicaljson serializes decoded JSON values per RFC 8785 (JCS) and
// derives schema fingerprints from that serialization.
//
// References:
// - RFC 8785: JSON Canonicalization Scheme (JCS): https://www.rfc-editor.org/rfc/rfc8785
package canonicaljson

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unsafe"
)

// ErrCycle is returned when a value graph contains itself. JSON documents are
// trees; a cycle can only come from values assembled in Go.
var ErrCycle = errors.New("canonicaljson: cyclic value")

// Marshal returns the RFC 8785 encoding of v.
//
// v may be raw JSON ([]byte, json.RawMessage) or an already decoded value made
// of map[string]any, []any, string, bool, nil and numbers (float64,
// json.Number or Go integer types). Other values go through encoding/json first.
//
//   - Objects are sorted by member names using UTF-16 code unit order.
//   - Strings use the shorthand escapes \b \t \n \f \r; other control characters use \u00xx.
//   - Numbers use ECMAScript number serialization.
//   - Output is compact.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write is Marshal into an existing buffer.
func Write(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case json.RawMessage:
		return writeRaw(buf, x)
	case []byte:
		return writeRaw(buf, x)
	}
	w := &writer{buf: buf, onPath: map[uintptr]struct{}{}}
	return w.write(v)
}

// Fingerprint returns the canonical serialization of a schema value, used as a
// cache key for anonymous schemas. Structurally equal values share a fingerprint
// regardless of key order or numeric representation.
func Fingerprint(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeRaw(buf *bytes.Buffer, b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var anyVal any
	if err := dec.Decode(&anyVal); err != nil {
		return err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		if err == nil {
			return errors.New("invalid JSON: trailing data")
		}
		return err
	}
	w := &writer{buf: buf, onPath: map[uintptr]struct{}{}}
	return w.write(anyVal)
}

type writer struct {
	buf *bytes.Buffer
	// onPath holds the containers currently being written, for cycle detection.
	onPath map[uintptr]struct{}
}

func (w *writer) enter(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	k := uintptr(p)
	if _, ok := w.onPath[k]; ok {
		return ErrCycle
	}
	w.onPath[k] = struct{}{}
	return nil
}

func (w *writer) leave(p unsafe.Pointer) {
	if p != nil {
		delete(w.onPath, uintptr(p))
	}
}

func (w *writer) write(v any) error {
	buf := w.buf
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if x {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, x)
	case json.Number:
		s, err := formatNumber(x.String())
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case float64:
		s, err := formatFloat64(x)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case float32:
		s, err := formatFloat64(float64(x))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		s, err := formatNumber(fmt.Sprint(x))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case []any:
		var p unsafe.Pointer
		if len(x) > 0 {
			p = unsafe.Pointer(&x[0])
		}
		if err := w.enter(p); err != nil {
			return err
		}
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := w.write(item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		w.leave(p)
	case map[string]any:
		p := reflect.ValueOf(x).UnsafePointer()
		if err := w.enter(p); err != nil {
			return err
		}
		if err := w.writeObject(x); err != nil {
			return err
		}
		w.leave(p)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return writeRaw(buf, b)
	}
	return nil
}

func (w *writer) writeObject(x map[string]any) error {
	type kv struct {
		k   string
		key []uint16
	}
	keys := make([]kv, 0, len(x))
	for k := range x {
		keys = append(keys, kv{k: k, key: utf16.Encode([]rune(k))})
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i].key, keys[j].key)
	})
	w.buf.WriteByte('{')
	for i, entry := range keys {
		if i > 0 {
			w.buf.WriteByte(',')
		}
		writeString(w.buf, entry.k)
		w.buf.WriteByte(':')
		if err := w.write(x[entry.k]); err != nil {
			return err
		}
	}
	w.buf.WriteByte('}')
	return nil
}

func lessUTF16(a, b []uint16) bool {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r <= 0x1F:
			var b [6]byte
			copy(b[:4], `\u00`)
			hex.Encode(b[4:], []byte{byte(r)})
			buf.Write(b[:])
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

func formatNumber(s string) (string, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return "", err
	}
	return formatFloat64(f)
}

func formatFloat64(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", errors.New("invalid JSON number: NaN or Infinity")
	}
	if f == 0 {
		return "0", nil
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return trimExponent(strconv.FormatFloat(f, 'e', -1, 64)), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// trimExponent turns Go's zero-padded exponent (1e-06) into the ECMAScript form (1e-6).
func trimExponent(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 || i+2 >= len(s) {
		return s
	}
	sign, exp := s[i+1], strings.TrimLeft(s[i+2:], "0")
	if exp == "" {
		exp = "0"
	}
	return s[:i+1] + string(sign) + exp
}
