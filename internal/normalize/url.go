package normalize

import (
	"net/url"
	"strings"
)

// URL produces the comparison form used for exclusion matching: scheme
// stripped, host lowercased, trailing slash removed. Query strings and
// fragments are kept, since memorial platforms distinguish people by
// query parameters. Unparseable input falls back to trimmed lowercase.
//
//	https://www.Example.com/obits/john-smith/ → www.example.com/obits/john-smith
func URL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return strings.TrimSuffix(strings.ToLower(trimmed), "/")
	}

	rest := strings.TrimSuffix(parsed.Path, "/")
	if parsed.RawQuery != "" {
		rest += "?" + parsed.RawQuery
	}

	if parsed.Fragment != "" {
		rest += "#" + parsed.Fragment
	}

	return strings.ToLower(parsed.Host) + rest
}
