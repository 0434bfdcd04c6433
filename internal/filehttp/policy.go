package filehttp

import (
	"mime"
	"path"
	"strings"
)

func cacheControlFor(name string, o *Options) string {
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".html", ".htm", "":
		return o.HTMLCacheControl
	case ".css", ".js", ".mjs",
		".png", ".jpg", ".jpeg", ".webp", ".avif", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".eot",
		".map", ".wasm":
		return o.AssetCacheControl
	default:
		return o.OtherCacheControl
	}
}

// typeByExtension returns "" when the extension is unknown.
func typeByExtension(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return mime.TypeByExtension(strings.ToLower(ext))
}

// compressible reports whether a body of this media type shrinks when
// compressed. Already compressed formats are excluded.
func compressible(contentType string) bool {
	mt := contentType
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	mt = strings.TrimSpace(strings.ToLower(mt))
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/javascript", "application/xml",
		"application/wasm", "application/manifest+json", "application/rss+xml",
		"application/atom+xml", "image/svg+xml", "image/x-icon":
		return true
	}
	return strings.HasSuffix(mt, "+json") || strings.HasSuffix(mt, "+xml")
}
