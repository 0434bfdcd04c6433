package filehttp

import (
	"bytes"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/keithlinneman/filecache/internal/digest"
	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/log"
	"github.com/keithlinneman/filecache/internal/resource"
)

var ErrInvalidOptions = errors.New("filehttp: invalid options")

type Handler struct {
	opts     Options
	types    *sniffedTypes
	listener filecache.ListenerHandle
}

// New registers a clear listener on opts.Cache; Close removes it.
func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	h := &Handler{opts: opts, types: newSniffedTypes()}
	h.listener = opts.Cache.AddClearListener(h.types.reset)
	return h, nil
}

func (h *Handler) Close() error {
	return h.opts.Cache.RemoveClearListener(h.listener)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name, ok := resourceName(r.URL.Path, h.opts.IndexFile)
	if !ok {
		h.notFound(w)
		return
	}

	ctx := r.Context()
	body, hit, err := h.getBytes(r, name, nil)
	if err != nil {
		h.fail(w, r, name, err)
		return
	}
	sumv, _, err := h.opts.Cache.Get(ctx, name, digest.SHA256)
	if err != nil {
		h.fail(w, r, name, err)
		return
	}
	sum := sumv.(string)

	ct := typeByExtension(name)
	if ct == "" {
		ct = h.types.lookup(sum, body)
	}

	hdr := w.Header()
	hdr.Set("Content-Type", ct)
	if cc := cacheControlFor(name, &h.opts); cc != "" {
		hdr.Set("Cache-Control", cc)
	}

	etag := sum
	if !h.opts.DisableCompression && compressible(ct) {
		hdr.Add("Vary", "Accept-Encoding")
		if enc, ok := negotiate(r.Header.Get("Accept-Encoding")); ok && len(body) >= h.opts.MinCompressSize {
			encoded, encHit, err := h.getBytes(r, name, enc.transform)
			if err != nil {
				h.fail(w, r, name, err)
				return
			}
			body, hit = encoded, encHit
			etag = sum + "-" + enc.name
			hdr.Set("Content-Encoding", enc.name)
		}
	}
	hdr.Set("ETag", strconv.Quote(etag))
	if hit {
		hdr.Set("X-Cache", "hit")
	} else {
		hdr.Set("X-Cache", "miss")
	}

	http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(body))
}

// getBytes returns the []byte value for (name, t) and whether it came from
// the cache without recomputation.
func (h *Handler) getBytes(r *http.Request, name string, t filecache.Transform) ([]byte, bool, error) {
	v, recomputed, err := h.opts.Cache.Get(r.Context(), name, t)
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), !recomputed, nil
}

func (h *Handler) notFound(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found\n"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, name string, err error) {
	if errors.Is(err, resource.ErrNotFound) || errors.Is(err, resource.ErrInvalidName) || errors.Is(err, fs.ErrNotExist) {
		h.notFound(w)
		return
	}
	ctx := r.Context()
	log.FromContextOr(ctx, h.opts.Logger).Error(ctx, err, "serving resource failed", "resource", name)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusBadGateway)
	_, _ = w.Write([]byte("upstream content unavailable\n"))
}
