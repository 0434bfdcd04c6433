// Package pathutil checks request paths before they become resource names.
package pathutil

import "strings"

// HasDotSegments reports whether any segment of p is "." or "..".
func HasDotSegments(p string) bool {
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// IsSafeRelative reports whether p (without a leading slash) can be used as
// a resource name prefix: no NUL, no backslash, no dot segments and no empty
// segments other than a single trailing slash.
func IsSafeRelative(p string) bool {
	if strings.ContainsAny(p, "\x00\\") || strings.HasPrefix(p, "/") {
		return false
	}
	if strings.Contains(p, "//") {
		return false
	}
	return !HasDotSegments(p)
}
