package opshttp

import (
	"context"
	"net/http"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/health"
)

// CacheAdmin is the part of *filecache.Cache the ops endpoints drive.
type CacheAdmin interface {
	Clear(ctx context.Context) error
	Stats() filecache.Stats
}

type Options struct {
	Port         int
	Metrics      http.Handler
	EnablePprof  bool
	Health       health.Probe
	Readiness    health.Probe
	Cache        CacheAdmin
	UseRecoverMW bool
	// OnPanic runs after a recovered panic, e.g. to count it.
	OnPanic func()
}
