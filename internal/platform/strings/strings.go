// Package strings has the few string helpers std strings lacks
package strings

import std "strings"

// IfEmpty is cmp.Or for slices
func IfEmpty[T any](in, def []T) []T {
	if len(in) > 0 {
		return in
	}
	return def
}

// FirstNonEmpty skips blank values, an all blank list gives ""
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if std.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// MustPrefix turns " v1/ " into "/v1" and panics on a bare root, route prefixes are set in code
func MustPrefix(s string) string {
	s = std.Trim(s, " /")
	if s == "" {
		panic("strings: empty route prefix")
	}
	return "/" + s
}
