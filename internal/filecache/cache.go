package filecache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/keithlinneman/filecache/internal/log"
)

// record is the fingerprint table entry for one resource name, shared by
// every transform of that name.
type record struct {
	checkedAt time.Time
	fp        Fingerprint
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Records           int    `json:"records"`
	Entries           int    `json:"entries"`
	Hits              uint64 `json:"hits"`
	Misses            uint64 `json:"misses"`
	Stale             uint64 `json:"stale"`
	FingerprintChecks uint64 `json:"fingerprint_checks"`
	Reads             uint64 `json:"reads"`
	Clears            uint64 `json:"clears"`
}

// Cache is a staleness-bounded content cache. The zero value is not usable;
// construct with New.
//
// Accessor calls run under the cache lock, so concurrent Gets queue behind
// the slowest fingerprint or read in flight.
type Cache struct {
	clock    Clock
	delay    time.Duration
	accessor Accessor
	logger   log.Logger
	metrics  Metrics

	// mu guards records, content, entries and stats, and is held for the
	// whole of Get and Clear.
	mu      sync.Mutex
	records map[string]record
	content map[string]map[string]any
	entries int
	stats   Stats

	// lmu guards the listener list only, so listeners can (un)register
	// while Clear holds mu.
	lmu       sync.Mutex
	listeners []listener
	nextID    uint64
}

// New creates a Cache from opts.
func New(opts Options) (*Cache, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Cache{
		clock:    opts.Clock,
		delay:    opts.RecheckDelay,
		accessor: opts.Accessor,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		records:  make(map[string]record),
		content:  make(map[string]map[string]any),
	}, nil
}

// Get returns the content of name with t applied (nil t is identity, and
// the value is the raw []byte). recomputed reports whether the value was
// produced by this call rather than served from the cache.
//
// Errors from the accessor or the transform are returned as is (wrapped)
// and leave the cache exactly as it was before the call.
func (c *Cache) Get(ctx context.Context, name string, t Transform) (value any, recomputed bool, err error) {
	if t != nil && t.Key() == identityKey {
		return nil, false, fmt.Errorf("%w: empty key", ErrInvalidTransform)
	}
	key := transformKey(t)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	rec, known := c.records[name]

	// next is the record to commit once the call succeeds
	var next *record
	fresh, stale := known, false

	switch {
	case !known:
		fp, err := c.fingerprint(ctx, name)
		if err != nil {
			return nil, false, err
		}
		next = &record{checkedAt: now, fp: fp}
	case c.delay == NeverRecheck:
	case now.Sub(rec.checkedAt) < c.delay:
	default:
		fp, err := c.fingerprint(ctx, name)
		if err != nil {
			return nil, false, err
		}
		if sameFingerprint(rec.fp, fp) {
			next = &record{checkedAt: now, fp: rec.fp}
		} else {
			next = &record{checkedAt: now, fp: fp}
			fresh, stale = false, true
		}
	}

	if fresh {
		if v, ok := c.content[name][key]; ok {
			if next != nil {
				c.records[name] = *next
			}
			c.stats.Hits++
			c.observeLookup(ResultHit)
			return v, false, nil
		}
	}

	v, err := c.materialize(ctx, name, t)
	if err != nil {
		return nil, false, err
	}

	// commit
	if next != nil {
		c.records[name] = *next
	}
	if stale {
		c.entries -= len(c.content[name])
		delete(c.content, name)
		c.stats.Stale++
		c.observeLookup(ResultStale)
	} else {
		c.stats.Misses++
		c.observeLookup(ResultMiss)
	}
	byKey, ok := c.content[name]
	if !ok {
		byKey = make(map[string]any)
		c.content[name] = byKey
	}
	if _, exists := byKey[key]; !exists {
		c.entries++
	}
	byKey[key] = v
	if c.metrics != nil {
		c.metrics.SetEntries(c.entries)
	}

	c.logger.Debug(ctx, "filecache: content materialized",
		"name", name,
		"transform", key,
		"stale", stale,
	)
	return v, true, nil
}

// Bytes is Get with the identity transform.
func (c *Cache) Bytes(ctx context.Context, name string) ([]byte, bool, error) {
	v, recomputed, err := c.Get(ctx, name, nil)
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), recomputed, nil
}

// Clear drops every fingerprint record and content entry, then calls the
// clear listeners registered at the time of the call, in registration
// order. The first listener error stops delivery and is returned wrapped in
// ErrListenerFailed; the tables are empty regardless.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := c.entries
	c.records = make(map[string]record)
	c.content = make(map[string]map[string]any)
	c.entries = 0
	c.stats.Clears++
	if c.metrics != nil {
		c.metrics.IncClear()
		c.metrics.SetEntries(0)
	}

	snapshot := c.snapshotListeners()
	c.logger.Info(ctx, "filecache: cleared",
		"dropped_entries", dropped,
		"listeners", len(snapshot),
	)

	for i, l := range snapshot {
		if err := l.fn(ctx); err != nil {
			if c.metrics != nil {
				c.metrics.IncListenerFailure()
			}
			return fmt.Errorf("%w: listener %d of %d: %w", ErrListenerFailed, i+1, len(snapshot), err)
		}
	}
	return nil
}

// Stats returns current table sizes and cumulative counters. It takes the
// cache lock, so a clear listener must not call it.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Records = len(c.records)
	s.Entries = c.entries
	return s
}

func (c *Cache) fingerprint(ctx context.Context, name string) (Fingerprint, error) {
	c.stats.FingerprintChecks++
	if c.metrics != nil {
		c.metrics.IncFingerprintCheck()
	}
	fp, err := c.accessor.Fingerprint(ctx, name)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncError(OpFingerprint)
		}
		return nil, fmt.Errorf("%w: fingerprint %q: %w", ErrResourceUnavailable, name, err)
	}
	return fp, nil
}

func (c *Cache) materialize(ctx context.Context, name string, t Transform) (any, error) {
	c.stats.Reads++
	start := time.Now()
	raw, err := c.accessor.Read(ctx, name)
	if c.metrics != nil {
		c.metrics.IncRead()
		c.metrics.ObserveReadDuration(time.Since(start).Seconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncError(OpRead)
		}
		return nil, fmt.Errorf("%w: read %q: %w", ErrResourceUnavailable, name, err)
	}
	if t == nil {
		return raw, nil
	}
	v, err := t.Apply(raw)
	if err != nil {
		if c.metrics != nil {
			c.metrics.IncError(OpTransform)
		}
		return nil, fmt.Errorf("%w: %s of %q: %w", ErrTransformFailed, t.Key(), name, err)
	}
	return v, nil
}

func (c *Cache) observeLookup(result string) {
	if c.metrics != nil {
		c.metrics.IncLookup(result)
	}
}
