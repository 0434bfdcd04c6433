package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/keithlinneman/filecache/internal/filecache"
)

// CacheMetrics implements filecache.Metrics on prometheus collectors.
type CacheMetrics struct {
	lookups          *prometheus.CounterVec
	fpChecks         prometheus.Counter
	reads            prometheus.Counter
	errors           *prometheus.CounterVec
	clears           prometheus.Counter
	listenerFailures prometheus.Counter
	readDur          prometheus.Histogram
	entries          prometheus.Gauge
}

var _ filecache.Metrics = (*CacheMetrics)(nil)

func newCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	c := &CacheMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecache_lookups_total",
			Help: "Cache lookups by result (hit, miss, stale)",
		}, []string{"result"}),
		fpChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filecache_fingerprint_checks_total",
			Help: "Fingerprint calls made against the content source",
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filecache_reads_total",
			Help: "Full content reads made against the content source",
		}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filecache_errors_total",
			Help: "Failed cache operations by stage (fingerprint, read, transform)",
		}, []string{"op"}),
		clears: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filecache_clears_total",
			Help: "Full cache clears",
		}),
		listenerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filecache_listener_failures_total",
			Help: "Clears whose listener delivery stopped on an error",
		}),
		readDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "filecache_read_duration_seconds",
			Help:    "Time spent reading content from the source",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filecache_entries",
			Help: "Materialized (name, transform) entries currently held",
		}),
	}
	reg.MustRegister(c.lookups, c.fpChecks, c.reads, c.errors, c.clears, c.listenerFailures, c.readDur, c.entries)

	// pre-create label values so dashboards see zeros
	for _, r := range []string{filecache.ResultHit, filecache.ResultMiss, filecache.ResultStale} {
		c.lookups.WithLabelValues(r)
	}
	for _, op := range []string{filecache.OpFingerprint, filecache.OpRead, filecache.OpTransform} {
		c.errors.WithLabelValues(op)
	}
	return c
}

func (c *CacheMetrics) IncLookup(result string) { c.lookups.WithLabelValues(result).Inc() }

func (c *CacheMetrics) IncFingerprintCheck() { c.fpChecks.Inc() }

func (c *CacheMetrics) IncRead() { c.reads.Inc() }

func (c *CacheMetrics) IncError(op string) { c.errors.WithLabelValues(op).Inc() }

func (c *CacheMetrics) IncClear() { c.clears.Inc() }

func (c *CacheMetrics) IncListenerFailure() { c.listenerFailures.Inc() }

func (c *CacheMetrics) ObserveReadDuration(seconds float64) { c.readDur.Observe(seconds) }

func (c *CacheMetrics) SetEntries(n int) { c.entries.Set(float64(n)) }
