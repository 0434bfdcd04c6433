// Package ratelimit throttles content requests per client address before
// they reach the cache, so a single client cannot force a stream of
// fingerprint checks and reads against the content source.
//
// State is in memory and local to the process.
package ratelimit
