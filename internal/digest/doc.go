// Package digest provides content hashing helpers and the filecache
// transforms built on them: SHA-256 and xxhash64 digests, and gzip and zstd
// encodings of a resource's bytes.
package digest
