// Package resource implements filecache accessors over the places content
// lives: a local directory, an fs.FS, an S3 bucket and SSM parameters.
//
// Every accessor takes names in fs.ValidPath form (slash-separated, no dot
// segments, no leading slash). A missing resource yields an error matching
// ErrNotFound.
package resource
