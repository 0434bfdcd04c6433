// Package filehttp serves cached resources over HTTP.
//
// Each request maps to a resource name and is answered from a
// filecache.Cache: the body from the identity entry or a compressed
// transform, the ETag from the SHA-256 transform. Responses go through
// http.ServeContent, which handles conditional and range requests.
package filehttp
