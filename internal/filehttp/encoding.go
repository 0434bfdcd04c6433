package filehttp

import (
	"strconv"
	"strings"

	"github.com/keithlinneman/filecache/internal/digest"
	"github.com/keithlinneman/filecache/internal/filecache"
)

type encoding struct {
	name      string
	transform filecache.Transform
}

// supported encodings in server preference order
var encodings = []encoding{
	{name: "zstd", transform: digest.Zstd},
	{name: "gzip", transform: digest.Gzip},
}

// negotiate picks the first supported encoding the Accept-Encoding header
// allows with a non-zero q. A "*" entry allows any encoding not listed.
func negotiate(header string) (encoding, bool) {
	if header == "" {
		return encoding{}, false
	}
	accepted := map[string]bool{}
	wildcard, hasWildcard := false, false
	for _, part := range strings.Split(header, ",") {
		token, q := parseCoding(part)
		if token == "" {
			continue
		}
		if token == "*" {
			wildcard, hasWildcard = q > 0, true
			continue
		}
		accepted[token] = q > 0
	}
	for _, e := range encodings {
		if ok, listed := accepted[e.name]; listed {
			if ok {
				return e, true
			}
			continue
		}
		if hasWildcard && wildcard {
			return e, true
		}
	}
	return encoding{}, false
}

func parseCoding(s string) (token string, q float64) {
	q = 1
	token, params, _ := strings.Cut(s, ";")
	token = strings.ToLower(strings.TrimSpace(token))
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.ToLower(strings.TrimSpace(k)) != "q" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return token, 0
		}
		q = f
	}
	return token, q
}
