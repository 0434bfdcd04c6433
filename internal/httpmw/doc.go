// Package httpmw holds the HTTP middleware shared by the public file server
// and the admin server.
//
// httpserver composes them outermost first: recovery, request ID, client IP,
// rate limiting, tracing, metrics, request logger, access log, then the chi
// router. Query strings and user agents stay out of logs.
package httpmw
