package filecache

import (
	"context"
	"fmt"
	"time"

	"github.com/keithlinneman/filecache/internal/log"
)

// NeverRecheck disables fingerprint rechecks: content is frozen at the first
// successful read of each (name, transform) pair.
const NeverRecheck time.Duration = -1

// Clock returns the current time. It must not go backwards over the lifetime
// of a cache.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Accessor fingerprints and reads named resources. Fingerprint is expected to
// be cheap relative to Read.
type Accessor interface {
	Fingerprint(ctx context.Context, name string) (Fingerprint, error)
	Read(ctx context.Context, name string) ([]byte, error)
}

// Funcs adapts a pair of functions into an Accessor.
type Funcs struct {
	FingerprintFunc func(ctx context.Context, name string) (Fingerprint, error)
	ReadFunc        func(ctx context.Context, name string) ([]byte, error)
}

func (f Funcs) Fingerprint(ctx context.Context, name string) (Fingerprint, error) {
	return f.FingerprintFunc(ctx, name)
}

func (f Funcs) Read(ctx context.Context, name string) ([]byte, error) {
	return f.ReadFunc(ctx, name)
}

// Metrics is implemented by the metrics package to observe cache behavior.
type Metrics interface {
	IncLookup(result string)
	IncFingerprintCheck()
	IncRead()
	IncError(op string)
	IncClear()
	IncListenerFailure()
	ObserveReadDuration(seconds float64)
	SetEntries(n int)
}

// lookup results reported to Metrics
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultStale = "stale"
)

// error ops reported to Metrics
const (
	OpFingerprint = "fingerprint"
	OpRead        = "read"
	OpTransform   = "transform"
)

type Options struct {
	// Clock defaults to the system clock.
	Clock Clock

	// RecheckDelay is the minimum time between two fingerprint checks of the
	// same name. Zero rechecks on every Get. NeverRecheck disables rechecks.
	RecheckDelay time.Duration

	// Accessor is required.
	Accessor Accessor

	Logger  log.Logger
	Metrics Metrics
}

func (o *Options) setDefaults() {
	if o.Clock == nil {
		o.Clock = systemClock{}
	}
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
}

func (o *Options) validate() error {
	if o.Accessor == nil {
		return fmt.Errorf("%w: Accessor is nil", ErrInvalidOptions)
	}
	if o.RecheckDelay < 0 && o.RecheckDelay != NeverRecheck {
		return fmt.Errorf("%w: RecheckDelay %s is negative (use NeverRecheck to disable rechecks)", ErrInvalidOptions, o.RecheckDelay)
	}
	return nil
}
