package uri

import "strings"

// Raw values are written key=RAW(value) or key=RAW{value} and are taken
// literally, without percent decoding.
const rawPrefix = "RAW"

var (
	rawStart = [...]byte{'(', '{'}
	rawEnd   = [...]byte{')', '}'}
)

// Span marks a RAW token: Start is the index of "RAW", End the index of
// its closing character.
type Span struct{ Start, End int }

// rawOpen reports whether s starts with a RAW token and returns the
// closing character to look for.
func rawOpen(s string) (closer byte, ok bool) {
	if len(s) < len(rawPrefix)+1 || !strings.HasPrefix(s, rawPrefix) {
		return 0, false
	}
	c := s[len(rawPrefix)]
	for i, open := range rawStart {
		if c == open {
			return rawEnd[i], true
		}
	}
	return 0, false
}

// rawClose returns the index in s of the closer that ends a RAW token
// opened at s[0]: the first closer followed by '&' or the end of s.
func rawClose(s string, closer byte) int {
	for i := len(rawPrefix) + 1; i < len(s); i++ {
		if s[i] == closer && (i+1 == len(s) || s[i+1] == '&') {
			return i
		}
	}
	return -1
}

// ScanRaw locates every terminated RAW token in str, in order.
func ScanRaw(str string) []Span {
	var spans []Span
	for off := 0; off < len(str); {
		i := strings.Index(str[off:], rawPrefix)
		if i < 0 {
			break
		}
		start := off + i
		closer, ok := rawOpen(str[start:])
		if !ok {
			off = start + len(rawPrefix)
			continue
		}
		end := rawClose(str[start:], closer)
		if end < 0 {
			break
		}
		spans = append(spans, Span{Start: start, End: start + end})
		off = start + end + 1
	}
	return spans
}

// IsRaw reports whether index falls inside one of spans, which must be
// ordered as returned by ScanRaw.
func IsRaw(index int, spans []Span) bool {
	for _, s := range spans {
		if index < s.Start {
			return false
		}
		if index <= s.End {
			return true
		}
	}
	return false
}

// resolveRaw returns the content of a value that is exactly one RAW token.
func resolveRaw(v string) (string, bool) {
	closer, ok := rawOpen(v)
	if !ok || v[len(v)-1] != closer {
		return "", false
	}
	return v[len(rawPrefix)+1 : len(v)-1], true
}

// ResolveRawValues replaces every RAW(...) value in p with its content,
// turning "%25" back into "%".
func ResolveRawValues(p *Params) {
	for _, k := range p.keys {
		vs := p.vals[k]
		for i, v := range vs {
			if inner, ok := resolveRaw(v); ok {
				vs[i] = strings.ReplaceAll(inner, "%25", "%")
			}
		}
	}
}
