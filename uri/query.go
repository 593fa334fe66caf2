package uri

import (
	"net/url"
	"strings"
)

// CreateQueryString assembles p into "k1=v1&k2=v2...", percent-encoding
// keys and values. Values that are a RAW token are written as-is with '%'
// escaped to "%25". Repeated keys are written once per value. Returns ""
// for empty Params.
func CreateQueryString(p *Params) string {
	return createQueryString(p, p.keys, true)
}

// CreateQueryStringUnencoded is CreateQueryString without percent-encoding.
func CreateQueryStringUnencoded(p *Params) string {
	return createQueryString(p, p.keys, false)
}

func createQueryString(p *Params, keys []string, encode bool) string {
	var b strings.Builder
	for _, k := range keys {
		for _, v := range p.vals[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			appendParam(&b, k, v, encode)
		}
	}
	return b.String()
}

func appendParam(b *strings.Builder, k, v string, encode bool) {
	if encode {
		k = url.QueryEscape(k)
	}
	b.WriteString(k)
	b.WriteByte('=')
	switch {
	case isRawToken(v):
		b.WriteString(strings.ReplaceAll(v, "%", "%25"))
	case encode:
		b.WriteString(url.QueryEscape(v))
	default:
		b.WriteString(v)
	}
}

func isRawToken(v string) bool {
	_, ok := resolveRaw(v)
	return ok
}

// ExtractQuery returns the part of uri after the first '?'.
func ExtractQuery(uri string) (string, bool) {
	_, q, ok := strings.Cut(uri, "?")
	return q, ok
}

// StripQuery returns uri without its query.
func StripQuery(uri string) string {
	before, _, _ := strings.Cut(uri, "?")
	return before
}

// AppendParameters normalizes uri and sets every parameter of extra on
// its query, replacing values of keys already present.
func AppendParameters(uri string, extra *Params) (string, error) {
	norm, err := NormalizeURI(uri)
	if err != nil {
		return "", err
	}
	q, _ := ExtractQuery(norm)
	p, err := ParseQueryPreserveRaw(q, false, false)
	if err != nil {
		return "", err
	}
	p.Merge(extra)

	base := StripQuery(norm)
	if qs := CreateQueryString(p); qs != "" {
		return base + "?" + qs, nil
	}
	return base, nil
}

// JoinPaths joins path segments with exactly one '/' between them.
// Empty segments are skipped; a leading '/' on the first segment and a
// trailing '/' on the last are kept.
func JoinPaths(paths ...string) string {
	parts := make([]string, 0, len(paths))
	addedLast := false
	for i := len(paths) - 1; i >= 0; i-- {
		path := paths[i]
		if path == "" {
			continue
		}
		if addedLast {
			path = strings.TrimSuffix(path, "/")
		}
		addedLast = true
		if path != "" && path[0] != '/' && i > 0 {
			path = "/" + path
		}
		parts = append(parts, path)
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return b.String()
}
