package uri

import (
	"regexp"
	"strings"
)

// Redacted replaces secrets in sanitized URIs.
const Redacted = "xxxxxx"

// secretParam matches a query parameter whose key contains passphrase,
// password or secretKey, capturing the key (with its leading ? or &) and
// the value, RAW tokens included.
var secretParam = regexp.MustCompile(
	`(?i)([?&][^=]*(?:passphrase|password|secretKey)[^=]*)=(RAW(?:\{[^}]*\}|\([^)]*\))|[^&]*)`)

var secretKey = regexp.MustCompile(`(?i)passphrase|password|secretKey`)

// IsSecretKey reports whether values of the query parameter k are redacted
// by SanitizeURI.
func IsSecretKey(k string) bool { return secretKey.MatchString(k) }

// SanitizeURI redacts secret query values and the password of a
// user:password@host authority. Nothing else in uri changes.
func SanitizeURI(uri string) string {
	if uri == "" {
		return uri
	}
	s := secretParam.ReplaceAllString(uri, "${1}="+Redacted)
	return redactUserInfo(s)
}

// SanitizePath redacts the password of a user:password@host path, that is
// everything between the first ':' and the last '@'.
func SanitizePath(path string) string {
	colon := strings.IndexByte(path, ':')
	at := strings.LastIndexByte(path, '@')
	if colon < 0 || at <= colon {
		return path
	}
	return path[:colon+1] + Redacted + path[at:]
}

// redactUserInfo replaces the password in the authority that follows the
// first "://". The password runs from the first ':' of the user info to
// the '@' that ends it. That '@' is the last one before the first '/' or
// '?' following the first '@', so '@' and '?' may appear unencoded in the
// password. A ':' followed by a port and a query is not user info.
func redactUserInfo(uri string) string {
	i := strings.Index(uri, "://")
	if i < 0 {
		return uri
	}
	start := i + len("://")
	region := uri[start:]
	at := strings.IndexByte(region, '@')
	if at < 0 {
		return uri
	}
	end := len(region)
	if j := strings.IndexAny(region[at:], "/?"); j >= 0 {
		end = at + j
	}
	at = strings.LastIndexByte(region[:end], '@')

	colon := strings.IndexByte(region[:at], ':')
	if colon < 0 || strings.ContainsAny(region[:colon], "/?") {
		return uri
	}
	pw := region[colon+1 : at]
	if strings.IndexByte(pw, '/') >= 0 || isPortThenQuery(pw) {
		return uri
	}
	return uri[:start+colon+1] + Redacted + uri[start+at:]
}

// isPortThenQuery reports whether s starts with a non-empty run of digits
// directly followed by '?', as in "host:8080?q=a@b".
func isPortThenQuery(s string) bool {
	q := strings.IndexByte(s, '?')
	if q <= 0 {
		return false
	}
	for _, c := range s[:q] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
