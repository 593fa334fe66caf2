// Package uri parses, rebuilds, normalizes and sanitizes endpoint URIs.
//
// Query values may be written RAW(value) or RAW{value} to be taken
// literally: the content is neither percent-decoded nor split on '&'.
// Every other value is percent-decoded after lone '%' characters (not
// followed by two hex digits) are escaped to "%25", and '+' decodes to a
// space.
//
// All functions are stateless and safe for concurrent use.
package uri

import (
	"fmt"
	"net/url"
	"strings"
)

// SyntaxError reports a malformed query or URI.
type SyntaxError struct {
	Input  string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("uri: invalid syntax: %s: %q", e.Reason, e.Input)
}

// ParseQuery parses a query string (without the leading '?') into Params.
// RAW values are unwrapped and kept byte-for-byte. useRaw disables percent
// decoding for every key and value. A trailing '&' is an error unless
// lenient is set. An empty query yields empty Params. Pairs with an empty
// key, such as "=v" or a bare "&&", are dropped, so a Params holding an
// empty key does not survive a CreateQueryString round trip.
func ParseQuery(query string, useRaw, lenient bool) (*Params, error) {
	return parseQuery(query, useRaw, lenient, false)
}

// ParseQueryPreserveRaw is ParseQuery without unwrapping RAW values, so
// the result can be written back with CreateQueryString. Use
// ResolveRawValues to unwrap them later.
func ParseQueryPreserveRaw(query string, useRaw, lenient bool) (*Params, error) {
	return parseQuery(query, useRaw, lenient, true)
}

func parseQuery(query string, useRaw, lenient, keepRaw bool) (*Params, error) {
	p := NewParams()
	if query == "" {
		return p, nil
	}
	if !lenient && strings.HasSuffix(query, "&") {
		return nil, &SyntaxError{Input: query, Reason: "trailing & marker found, remove it"}
	}

	for rest := query; rest != ""; {
		var key, val string
		var raw bool

		i := strings.IndexAny(rest, "=&")
		switch {
		case i < 0:
			key, rest = rest, ""
		case rest[i] == '&':
			key, rest = rest[:i], rest[i+1:]
		default:
			key, rest = rest[:i], rest[i+1:]
			val, rest, raw = scanValue(rest)
		}
		if key == "" {
			continue
		}

		if !useRaw {
			k, err := decode(key)
			if err != nil {
				return nil, &SyntaxError{Input: query, Reason: err.Error()}
			}
			key = k
		}
		switch {
		case raw && !keepRaw:
			val, _ = resolveRaw(val)
		case raw, useRaw:
		default:
			v, err := decode(val)
			if err != nil {
				return nil, &SyntaxError{Input: query, Reason: err.Error()}
			}
			val = v
		}
		p.Add(key, val)
	}
	return p, nil
}

// scanValue cuts the value at the head of s. A terminated RAW token may
// contain '&'; any other value ends at the next '&'.
func scanValue(s string) (val, rest string, raw bool) {
	if closer, ok := rawOpen(s); ok {
		if end := rawClose(s, closer); end >= 0 {
			val, rest = s[:end+1], s[end+1:]
			return val, strings.TrimPrefix(rest, "&"), true
		}
	}
	if i := strings.IndexByte(s, '&'); i >= 0 {
		return s[:i], s[i+1:], false
	}
	return s, "", false
}

func decode(s string) (string, error) {
	return url.QueryUnescape(escapeLonePercent(s))
}

// escapeLonePercent rewrites every '%' not followed by two hex digits
// as "%25".
func escapeLonePercent(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}
