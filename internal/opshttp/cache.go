package opshttp

import (
	"encoding/json"
	"net/http"

	"github.com/keithlinneman/filecache/internal/log"
)

// clearHandler drops the whole cache. The tables are empty even when a
// clear listener fails, so the 500 only reports the listener error.
func clearHandler(c CacheAdmin, L log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed\n", http.StatusMethodNotAllowed)
			return
		}
		ctx := r.Context()
		if err := c.Clear(ctx); err != nil {
			L.Error(ctx, err, "cache clear failed")
			http.Error(w, err.Error()+"\n", http.StatusInternalServerError)
			return
		}
		L.Info(ctx, "cache cleared", "remote", r.RemoteAddr)
		w.WriteHeader(http.StatusNoContent)
	}
}

func statsHandler(c CacheAdmin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed\n", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(c.Stats())
	}
}
