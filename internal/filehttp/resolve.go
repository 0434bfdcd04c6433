package filehttp

import (
	"strings"

	"github.com/keithlinneman/filecache/internal/pathutil"
)

// resourceName maps a URL path to a resource name. ok is false for paths
// that can never name a resource.
func resourceName(urlPath, index string) (name string, ok bool) {
	p := strings.TrimPrefix(urlPath, "/")
	if !pathutil.IsSafeRelative(p) {
		return "", false
	}
	if p == "" || strings.HasSuffix(p, "/") {
		p += index
	}
	return p, true
}
