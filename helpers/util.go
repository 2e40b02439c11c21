package helpers

import (
	"net/url"
	"strings"
)

// CollapseSpaces trims s and squeezes every run of whitespace into one space
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AbsoluteURL turns a scheme-relative or root-relative href into an absolute
// URL under base. Absolute inputs are returned unchanged.
func AbsoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return strings.TrimRight(base, "/") + href
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	}
	if u, err := url.Parse(base); err == nil {
		if ref, err := url.Parse(href); err == nil {
			return u.ResolveReference(ref).String()
		}
	}
	return href
}
