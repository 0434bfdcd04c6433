package digest

import (
	"bytes"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/xerrors"
)

// Transform keys. They are part of the cache key, so they must stay stable
// for a given encoding.
const (
	KeySHA256 = "sha256"
	KeyXXH64  = "xxh64"
	KeyGzip   = "gzip"
	KeyZstd   = "zstd"
)

// SHA256 yields the hex SHA-256 of the content as a string.
var SHA256 = filecache.TransformFunc(KeySHA256, func(b []byte) (any, error) {
	return SHA256Hex(b), nil
})

// XXH64Sum yields the hex xxhash64 of the content as a string.
var XXH64Sum = filecache.TransformFunc(KeyXXH64, func(b []byte) (any, error) {
	return XXH64Hex(b), nil
})

// Gzip yields the gzip encoding of the content as []byte.
var Gzip = filecache.TransformFunc(KeyGzip, gzipBytes)

// Zstd yields the zstd encoding of the content as []byte.
var Zstd = filecache.TransformFunc(KeyZstd, zstdBytes)

func gzipBytes(b []byte) (any, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// zstdEncoder is built on first use. EncodeAll is safe for concurrent use
// on a writer-less encoder.
var zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
})

func zstdBytes(b []byte) (any, error) {
	enc, err := zstdEncoder()
	if err != nil {
		return nil, xerrors.Wrap(err, "zstd encoder")
	}
	return enc.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
}
