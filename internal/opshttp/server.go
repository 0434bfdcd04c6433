package opshttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/keithlinneman/filecache/internal/health"
	"github.com/keithlinneman/filecache/internal/httpmw"
	"github.com/keithlinneman/filecache/internal/httpserver"
	"github.com/keithlinneman/filecache/internal/log"
)

// NewHandler builds the admin mux: health, /metrics, cache admin and,
// when enabled, pprof.
func NewHandler(L log.Logger, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/-/healthy", health.HealthzHandler(opts.Health))
	mux.Handle("/-/ready", health.ReadyzHandler(opts.Readiness))

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	if opts.Cache != nil {
		mux.Handle("/-/cache/clear", clearHandler(opts.Cache, L))
		mux.Handle("/-/cache/stats", statsHandler(opts.Cache))
	}

	// shadow pprof with 404s when disabled
	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	var h http.Handler = mux
	if opts.UseRecoverMW {
		h = httpmw.Recover(L, opts.OnPanic)(h)
	}
	return h
}

// Start serves the admin handler on opts.Port (default 9000).
// Returns stop(ctx) for graceful shutdown.
func Start(ctx context.Context, L log.Logger, opts Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = 9000
	}
	srv := httpserver.NewServer(fmt.Sprintf(":%d", port), NewHandler(L, opts))
	// pprof profile and trace run longer than the public write timeout
	srv.WriteTimeout = 2 * time.Minute
	return httpserver.Serve(ctx, L, "ops http server", srv)
}
