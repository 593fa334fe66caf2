package uri

import (
	"regexp"
	"slices"
	"strings"
)

// Multi-line URIs are joined by dropping each newline with the
// indentation that follows it.
var textBlock = regexp.MustCompile(`\n\s*`)

// NormalizeURI returns a canonical form of uri usable for endpoint
// identity comparison:
//   - the result always has the form scheme://path[?query];
//   - unsafe characters in the path are percent-encoded ('[' and ']' are
//     kept for http schemes so IPv6 hosts survive);
//   - every '@' in the user info but the last is encoded as %40;
//   - query keys are sorted, stable for repeated keys, and keys and values
//     are re-encoded. RAW values are kept as written.
//
// A uri without a scheme is returned unchanged.
func NormalizeURI(uri string) (string, error) {
	uri = TextBlockToSingleLine(uri)

	scheme, rest, ok := splitScheme(uri)
	if !ok {
		return uri, nil
	}
	rest = strings.TrimPrefix(rest, "//")
	path, query, hasQuery := strings.Cut(rest, "?")

	path = encodeUnsafe(path, strings.HasPrefix(scheme, "http"))
	path = encodeExtraAt(path)

	var b strings.Builder
	b.Grow(len(uri) + 8)
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(path)
	if !hasQuery || query == "" {
		return b.String(), nil
	}

	p, err := ParseQueryPreserveRaw(query, false, false)
	if err != nil {
		return "", err
	}
	keys := p.Keys()
	slices.Sort(keys)
	if qs := createQueryString(p, keys, true); qs != "" {
		b.WriteByte('?')
		b.WriteString(qs)
	}
	return b.String(), nil
}

// TextBlockToSingleLine joins a URI written across several lines.
func TextBlockToSingleLine(uri string) string {
	if !strings.Contains(uri, "\n") {
		return uri
	}
	return strings.TrimSpace(textBlock.ReplaceAllString(uri, ""))
}

// splitScheme splits uri at the first ':' when what precedes it is a
// valid scheme: a letter followed by letters, digits, '+', '-' or '.'.
func splitScheme(uri string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(uri, ':')
	if i <= 0 {
		return "", uri, false
	}
	for j := 0; j < i; j++ {
		c := uri[j]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case j > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", uri, false
		}
	}
	return uri[:i], uri[i+1:], true
}

const unsafeChars = " \"<>#{}|\\^[]`"

// encodeUnsafe percent-encodes characters that are not allowed in a URI
// path. A '%' is kept when it already starts an escape.
func encodeUnsafe(s string, keepBrackets bool) string {
	var b strings.Builder
	dirty := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(s, i, keepBrackets) {
			if !dirty {
				dirty = true
				b.Grow(len(s) + 8)
				b.WriteString(s[:i])
			}
			b.WriteByte('%')
			b.WriteByte(upperHex[c>>4])
			b.WriteByte(upperHex[c&0xF])
			continue
		}
		if dirty {
			b.WriteByte(c)
		}
	}
	if !dirty {
		return s
	}
	return b.String()
}

func needsEscape(s string, i int, keepBrackets bool) bool {
	c := s[i]
	switch {
	case c == '%':
		return !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]))
	case keepBrackets && (c == '[' || c == ']'):
		return false
	}
	return strings.IndexByte(unsafeChars, c) >= 0
}

const upperHex = "0123456789ABCDEF"

// encodeExtraAt encodes every '@' of the user info except the last, which
// separates it from the host.
func encodeExtraAt(path string) string {
	userInfo := path
	if i := strings.IndexByte(path, '/'); i > 0 {
		userInfo = path[:i]
	}
	if strings.Count(userInfo, "@") < 2 {
		return path
	}
	last := strings.LastIndexByte(userInfo, '@')
	return strings.ReplaceAll(path[:last], "@", "%40") + path[last:]
}
