package jsonvalue

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EscapeToken escapes a single JSON Pointer reference token (RFC 6901).
func EscapeToken(tok string) string {
	if !strings.ContainsAny(tok, "~/") {
		return tok
	}
	tok = strings.ReplaceAll(tok, "~", "~0")
	return strings.ReplaceAll(tok, "/", "~1")
}

// UnescapeToken reverses EscapeToken.
func UnescapeToken(tok string) string {
	if !strings.Contains(tok, "~") {
		return tok
	}
	tok = strings.ReplaceAll(tok, "~1", "/")
	return strings.ReplaceAll(tok, "~0", "~")
}

// AppendToken appends an escaped token to a JSON pointer.
func AppendToken(ptr string, tok string) string {
	return ptr + "/" + EscapeToken(tok)
}

// AppendIndex appends an array index to a JSON pointer.
func AppendIndex(ptr string, i int) string {
	return ptr + "/" + strconv.Itoa(i)
}

// SplitPointer splits a JSON pointer ("" or "/a/b") into unescaped tokens.
func SplitPointer(ptr string) ([]string, error) {
	if ptr == "" {
		return nil, nil
	}
	if !strings.HasPrefix(ptr, "/") {
		return nil, fmt.Errorf("invalid JSON pointer %q", ptr)
	}
	toks := strings.Split(ptr[1:], "/")
	for i, t := range toks {
		toks[i] = UnescapeToken(t)
	}
	return toks, nil
}

// Get walks tokens from doc. The second result is false when a token does not
// exist or traverses a scalar.
func Get(doc any, tokens []string) (any, bool) {
	cur := doc
	for _, tok := range tokens {
		switch x := cur.(type) {
		case map[string]any:
			nxt, ok := x[tok]
			if !ok {
				return nil, false
			}
			cur = nxt
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(x) {
				return nil, false
			}
			cur = x[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// RelativePointer is a parsed relative JSON pointer as used by $data
// references, e.g. "1/max", "0#" or an absolute "/limits/max".
type RelativePointer struct {
	// Absolute is set for pointers starting with "/" that resolve from the root instance.
	Absolute bool
	// Up is the number of levels to climb before applying Tokens.
	Up int
	// Key requests the property name or index of the reached value instead of the value.
	Key bool
	// Tokens are the unescaped reference tokens applied after climbing.
	Tokens []string
}

var errRelPointer = errors.New("invalid relative JSON pointer")

// ParseRelativePointer parses a $data pointer.
func ParseRelativePointer(s string) (RelativePointer, error) {
	if s == "" {
		return RelativePointer{Absolute: true}, nil
	}
	if s[0] == '/' {
		toks, err := SplitPointer(s)
		if err != nil {
			return RelativePointer{}, err
		}
		return RelativePointer{Absolute: true, Tokens: toks}, nil
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || (i > 1 && s[0] == '0') {
		return RelativePointer{}, fmt.Errorf("%w: %q", errRelPointer, s)
	}
	up, err := strconv.Atoi(s[:i])
	if err != nil {
		return RelativePointer{}, fmt.Errorf("%w: %q", errRelPointer, s)
	}
	rest := s[i:]
	switch {
	case rest == "":
		return RelativePointer{Up: up}, nil
	case rest == "#":
		return RelativePointer{Up: up, Key: true}, nil
	case rest[0] == '/':
		toks, err := SplitPointer(rest)
		if err != nil {
			return RelativePointer{}, err
		}
		return RelativePointer{Up: up, Tokens: toks}, nil
	default:
		return RelativePointer{}, fmt.Errorf("%w: %q", errRelPointer, s)
	}
}
