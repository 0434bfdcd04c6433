// Package metrics owns the process prometheus registry: HTTP server
// metrics, build info, rate limiting, profiling state and the cache
// metrics in CacheMetrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/filecache/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler
	cache   *CacheMetrics

	inflight      prometheus.Gauge
	reqTotal      *prometheus.CounterVec
	reqDur        *prometheus.HistogramVec
	respBytes     *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	panicTotal    prometheus.Counter
	buildInfo     *prometheus.GaugeVec
	sourceInfo    *prometheus.GaugeVec
	rlDenied      prometheus.Counter
	rlCapacity    prometheus.Counter
	profilingOn   prometheus.Gauge
}

// New returns a fresh registry with the go and process collectors and all
// server metrics registered. HTTP labels are method, route and status only.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		reg: reg,
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP responses by method and route",
		}, []string{"method", "route"}),
		panicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		sourceInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "filecache_source_info",
			Help: "Configured content source (label carries value, gauge is always 1)",
		}, []string{"source", "location"}),
		rlDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
		rlCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total times the rate limiter client table was full",
		}),
		profilingOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.panicTotal,
		m.buildInfo,
		m.sourceInfo,
		m.rlDenied,
		m.rlCapacity,
		m.profilingOn,
	)
	m.cache = newCacheMetrics(reg)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Cache returns the filecache.Metrics sink backed by this registry.
func (m *ServerMetrics) Cache() *CacheMetrics { return m.cache }

func (m *ServerMetrics) IncHttpPanic() { m.panicTotal.Inc() }

func (m *ServerMetrics) IncRateLimitDenied() { m.rlDenied.Inc() }

func (m *ServerMetrics) IncRateLimitCapacity() { m.rlCapacity.Inc() }

// SetBuildInfoFromVersion is called once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

// SetSource records the content source, e.g. ("s3", "s3://bucket/prefix").
func (m *ServerMetrics) SetSource(source, location string) {
	m.sourceInfo.Reset()
	m.sourceInfo.WithLabelValues(source, location).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingOn.Set(1)
		return
	}
	m.profilingOn.Set(0)
}
