package filehttp

import (
	"context"
	"fmt"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/log"
)

// Cache is the part of *filecache.Cache the handler uses.
type Cache interface {
	Get(ctx context.Context, name string, t filecache.Transform) (any, bool, error)
	AddClearListener(fn func(context.Context) error) filecache.ListenerHandle
	RemoveClearListener(h filecache.ListenerHandle) error
}

type Options struct {
	Cache  Cache
	Logger log.Logger

	// IndexFile is served for "/" and for paths ending in "/".
	IndexFile string // default: "index.html"

	// Cache-Control by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"

	// MinCompressSize is the smallest body offered compressed.
	MinCompressSize int // default: 256
	// DisableCompression serves identity bodies only.
	DisableCompression bool
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.IndexFile == "" {
		o.IndexFile = "index.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
	if o.MinCompressSize <= 0 {
		o.MinCompressSize = 256
	}
}

func (o *Options) validate() error {
	if o.Cache == nil {
		return fmt.Errorf("%w: Cache is nil", ErrInvalidOptions)
	}
	return nil
}
