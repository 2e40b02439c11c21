package crawler

import (
	"net/url"
	"strings"
	"unicode"
)

// NormalizeIdentity returns the dedup key form of an identity. URLs collapse to
// scheme, host and path; anything else is stripped of all whitespace.
func NormalizeIdentity(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		if canonical := CanonicalURL(s); canonical != "" {
			return canonical
		}
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// CanonicalURL strips query, fragment and a default port from an absolute URL
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	if port := u.Port(); (scheme == "https" && port == "443") || (scheme == "http" && port == "80") {
		host = strings.ToLower(u.Hostname())
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
	}
	return scheme + "://" + host + u.EscapedPath()
}
