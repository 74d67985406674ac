package resolve

import (
	"net/url"
	"strings"
)

// NormalizeID strips an empty trailing fragment ("#" or "#/") from id.
func NormalizeID(id string) string {
	switch {
	case strings.HasSuffix(id, "#/"):
		return id[:len(id)-2]
	case strings.HasSuffix(id, "#"):
		return id[:len(id)-1]
	}
	return id
}

// ResolveURL resolves ref against base using RFC 3986 reference resolution.
// An empty base leaves ref as-is (normalized); an unparsable input falls back
// to plain concatenation rules so that fragment-only refs still work.
func ResolveURL(base, ref string) string {
	if base == "" {
		return NormalizeID(ref)
	}
	if ref == "" {
		return NormalizeID(base)
	}
	b, err := url.Parse(base)
	if err != nil {
		return NormalizeID(ref)
	}
	r, err := url.Parse(ref)
	if err != nil {
		if strings.HasPrefix(ref, "#") {
			return NormalizeID(FullPath(base) + ref)
		}
		return NormalizeID(ref)
	}
	return NormalizeID(b.ResolveReference(r).String())
}

// FullPath returns the URI without its fragment.
func FullPath(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i]
	}
	return uri
}

// Fragment returns the decoded fragment of uri ("" when absent).
func Fragment(uri string) string {
	i := strings.IndexByte(uri, '#')
	if i < 0 {
		return ""
	}
	frag := uri[i+1:]
	if dec, err := url.PathUnescape(frag); err == nil {
		return dec
	}
	return frag
}

// Split separates uri into its full path and decoded fragment.
func Split(uri string) (path, fragment string) {
	return FullPath(uri), Fragment(uri)
}
