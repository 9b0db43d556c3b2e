package folio

import (
	"net/url"
	"path"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// SafeRedirect returns target when it is a local absolute path, and "/"
// otherwise. Scheme-relative and backslash tricks are rejected.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return "/"
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return target
}

// sameHostReferer reduces a Referer to a local path when it points at host,
// and returns "/" otherwise.
func sameHostReferer(referer, host string) string {
	if referer == "" {
		return "/"
	}
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" || !strings.EqualFold(u.Host, host) {
		return "/"
	}
	u.Scheme, u.Host, u.User = "", "", nil
	return SafeRedirect(u.RequestURI())
}
