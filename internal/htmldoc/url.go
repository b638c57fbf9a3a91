package htmldoc

import (
	"net/url"
	"path"
	"strconv"
	"strings"
)

// versionParams are the query parameters treated as cache-busting versions.
var versionParams = []string{"v", "ver", "version"}

// NormalizeURL strips query and fragment and folds minified variants so that
// "/js/app.min.js?v=2" and "/js/app.js" compare equal.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	switch {
	case strings.HasSuffix(u, ".min.js"):
		u = strings.TrimSuffix(u, ".min.js") + ".js"
	case strings.HasSuffix(u, ".min.css"):
		u = strings.TrimSuffix(u, ".min.css") + ".css"
	}
	if strings.HasPrefix(u, "./") {
		u = u[2:]
	}
	return u
}

// ExtractVersion returns the first of the v, ver or version query
// parameters, or "" when the URL carries none.
func ExtractVersion(u string) string {
	i := strings.Index(u, "?")
	if i < 0 {
		return ""
	}
	raw := u[i+1:]
	if j := strings.Index(raw, "#"); j >= 0 {
		raw = raw[:j]
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for _, p := range versionParams {
		if v := q.Get(p); v != "" {
			return v
		}
	}
	return ""
}

// SetVersion returns u with its version parameter set to version. An
// existing v, ver or version parameter is replaced in place; otherwise
// param (default "v") is appended. Other parameters and the fragment are
// preserved.
func SetVersion(u, param, version string) string {
	if param == "" {
		param = "v"
	}
	base, fragment, _ := strings.Cut(u, "#")
	base, rawQuery, hasQuery := strings.Cut(base, "?")

	var parts []string
	replaced := false
	if hasQuery && rawQuery != "" {
		for _, part := range strings.Split(rawQuery, "&") {
			key, _, _ := strings.Cut(part, "=")
			if isVersionParam(key) {
				if replaced {
					continue
				}
				part = key + "=" + url.QueryEscape(version)
				replaced = true
			}
			parts = append(parts, part)
		}
	}
	if !replaced {
		parts = append(parts, param+"="+url.QueryEscape(version))
	}

	out := base + "?" + strings.Join(parts, "&")
	if fragment != "" {
		out += "#" + fragment
	}
	return out
}

func isVersionParam(key string) bool {
	for _, p := range versionParams {
		if key == p {
			return true
		}
	}
	return false
}

// CompareVersions compares dotted versions such as "1.2.10" and "1.2.9" or
// dates such as "20250701". Numeric segments compare numerically, others
// lexically, and missing segments count as zero. An empty version sorts
// before any other.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return -1
	}
	if b == "" {
		return 1
	}
	as, bs := splitVersion(a), splitVersion(b)
	for i := 0; i < len(as) || i < len(bs); i++ {
		x, y := "0", "0"
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		xn, xerr := strconv.Atoi(x)
		yn, yerr := strconv.Atoi(y)
		switch {
		case xerr == nil && yerr == nil:
			if xn != yn {
				if xn < yn {
					return -1
				}
				return 1
			}
		case x != y:
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitVersion(v string) []string {
	return strings.FieldsFunc(strings.TrimPrefix(v, "v"), func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	})
}

// IsLocal reports whether u refers to a file on the same site.
func IsLocal(u string) bool {
	u = strings.TrimSpace(u)
	if u == "" || strings.HasPrefix(u, "#") || strings.HasPrefix(u, "//") {
		return false
	}
	lower := strings.ToLower(u)
	for _, scheme := range []string{"http:", "https:", "data:", "mailto:", "tel:", "javascript:", "blob:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}

// ResolveLocal resolves a local reference made from pagePath to a
// site-root-relative path. It returns false for remote URLs and for
// references that escape the site root.
func ResolveLocal(pagePath, u string) (string, bool) {
	if !IsLocal(u) {
		return "", false
	}
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if u == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(u); err == nil {
		u = unescaped
	}

	var resolved string
	if strings.HasPrefix(u, "/") {
		resolved = path.Clean(u)
	} else {
		resolved = path.Join(path.Dir(pagePath), u)
	}
	resolved = strings.TrimPrefix(resolved, "/")
	if resolved == "" || resolved == "." || strings.HasPrefix(resolved, "../") {
		return "", false
	}
	if strings.HasSuffix(u, "/") {
		resolved += "/index.html"
	}
	return resolved, true
}

// AbsoluteURL resolves ref against base, returning ref unchanged if either
// fails to parse.
func AbsoluteURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
