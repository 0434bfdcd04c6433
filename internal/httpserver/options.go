package httpserver

import (
	"net/http"

	"github.com/keithlinneman/filecache/internal/health"
	"github.com/keithlinneman/filecache/internal/httpmw"
	"github.com/keithlinneman/filecache/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	UseRecoverMW bool
	OnPanic      func()

	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe

	// Files serves every path not claimed by a health route.
	Files http.Handler
}
