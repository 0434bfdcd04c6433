package filecache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// AddClearListener / Clear

func TestClear_CallsListenersInOrder(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	var order []int
	for i := 1; i <= 3; i++ {
		c.AddClearListener(func(context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("order = %v, want [1 2 3]", order)
	}
}

func TestClear_ListenerSeesEmptyCache(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))
	mustBytes(t, c, "x")

	var records, entries int = -1, -1
	c.AddClearListener(func(context.Context) error {
		// Stats would deadlock here, read the tables directly
		records, entries = len(c.records), c.entries
		return nil
	})
	c.Clear(context.Background())

	if records != 0 || entries != 0 {
		t.Fatalf("listener saw records=%d entries=%d, want 0/0", records, entries)
	}
}

func TestClear_SameFuncRegisteredTwiceCalledTwice(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	var calls int
	fn := func(context.Context) error { calls++; return nil }
	h1 := c.AddClearListener(fn)
	h2 := c.AddClearListener(fn)
	if h1 == h2 {
		t.Fatal("handles should be distinct")
	}

	c.Clear(context.Background())
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestClear_ListenerFailureStopsDelivery(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))
	mustBytes(t, c, "x")

	boom := errors.New("boom")
	var calledThird bool
	c.AddClearListener(func(context.Context) error { return nil })
	c.AddClearListener(func(context.Context) error { return boom })
	c.AddClearListener(func(context.Context) error { calledThird = true; return nil })

	err := c.Clear(context.Background())
	if !errors.Is(err, ErrListenerFailed) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrListenerFailed wrapping boom", err)
	}
	if calledThird {
		t.Fatal("listener after the failing one should not be called")
	}
	if s := c.Stats(); s.Records != 0 || s.Entries != 0 {
		t.Fatalf("tables should be empty after failed delivery, got %+v", s)
	}
}

func TestClear_SnapshotIgnoresRegistrationDuringDelivery(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	var lateCalls int
	late := func(context.Context) error { lateCalls++; return nil }

	var added bool
	c.AddClearListener(func(context.Context) error {
		if !added {
			added = true
			c.AddClearListener(late)
		}
		return nil
	})

	c.Clear(context.Background())
	if lateCalls != 0 {
		t.Fatalf("listener added during delivery was called %d times", lateCalls)
	}

	c.Clear(context.Background())
	if lateCalls != 1 {
		t.Fatalf("lateCalls = %d after second Clear, want 1", lateCalls)
	}
}

func TestClear_SnapshotIgnoresRemovalDuringDelivery(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	var secondCalls int
	var second ListenerHandle
	c.AddClearListener(func(context.Context) error {
		return c.RemoveClearListener(second)
	})
	second = c.AddClearListener(func(context.Context) error { secondCalls++; return nil })

	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if secondCalls != 1 {
		t.Fatalf("second listener calls = %d, want 1 (it was in the snapshot)", secondCalls)
	}

	// removed for the next round; the first listener now fails to remove it again
	err := c.Clear(context.Background())
	if !errors.Is(err, ErrListenerNotFound) {
		t.Fatalf("err = %v, want ErrListenerNotFound from the first listener", err)
	}
	if secondCalls != 1 {
		t.Fatalf("second listener calls = %d, want 1", secondCalls)
	}
}

func TestClear_NoListeners(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear on empty cache: %v", err)
	}
}

// RemoveClearListener

func TestRemoveClearListener(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	var calls int
	h := c.AddClearListener(func(context.Context) error { calls++; return nil })
	if err := c.RemoveClearListener(h); err != nil {
		t.Fatalf("RemoveClearListener: %v", err)
	}
	c.Clear(context.Background())
	if calls != 0 {
		t.Fatalf("removed listener called %d times", calls)
	}
}

func TestRemoveClearListener_Twice(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	h := c.AddClearListener(func(context.Context) error { return nil })
	c.RemoveClearListener(h)
	if err := c.RemoveClearListener(h); !errors.Is(err, ErrListenerNotFound) {
		t.Fatalf("err = %v, want ErrListenerNotFound", err)
	}
}

func TestRemoveClearListener_ZeroHandle(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))
	c.AddClearListener(func(context.Context) error { return nil })

	if err := c.RemoveClearListener(ListenerHandle{}); !errors.Is(err, ErrListenerNotFound) {
		t.Fatalf("err = %v, want ErrListenerNotFound", err)
	}
}

func TestRemoveClearListener_OnlyRemovesOneRegistration(t *testing.T) {
	c := newTestCache(t, newFakeClock(), time.Second, newCountingAccessor("f1"))

	var calls int
	fn := func(context.Context) error { calls++; return nil }
	h1 := c.AddClearListener(fn)
	c.AddClearListener(fn)

	c.RemoveClearListener(h1)
	c.Clear(context.Background())
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

// metrics wiring

type spyMetrics struct {
	mu        sync.Mutex
	lookups   map[string]int
	fpChecks  int
	reads     int
	errs      map[string]int
	clears    int
	lfailures int
	entries   int
	observed  int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{lookups: map[string]int{}, errs: map[string]int{}}
}

func (s *spyMetrics) IncLookup(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups[result]++
}

func (s *spyMetrics) IncFingerprintCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fpChecks++
}

func (s *spyMetrics) IncRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
}

func (s *spyMetrics) IncError(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[op]++
}

func (s *spyMetrics) IncClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
}

func (s *spyMetrics) IncListenerFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lfailures++
}

func (s *spyMetrics) ObserveReadDuration(float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observed++
}

func (s *spyMetrics) SetEntries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = n
}

func TestMetrics_Recorded(t *testing.T) {
	clock := newFakeClock()
	acc := newCountingAccessor("f1")
	spy := newSpyMetrics()
	c, err := New(Options{Clock: clock, RecheckDelay: time.Second, Accessor: acc, Metrics: spy})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	mustBytes(t, c, "x")
	mustBytes(t, c, "x")
	c.Get(ctx, "x", upper)
	if spy.entries != 2 {
		t.Fatalf("entries gauge = %d, want 2", spy.entries)
	}

	acc.set("f2", "")
	clock.Advance(time.Second)
	mustBytes(t, c, "x")

	if spy.lookups[ResultMiss] != 2 || spy.lookups[ResultHit] != 1 || spy.lookups[ResultStale] != 1 {
		t.Fatalf("lookups = %v", spy.lookups)
	}
	if spy.fpChecks != 2 || spy.reads != 3 || spy.observed != 3 {
		t.Fatalf("fpChecks=%d reads=%d observed=%d, want 2/3/3", spy.fpChecks, spy.reads, spy.observed)
	}
	if spy.entries != 1 {
		t.Fatalf("entries gauge = %d, want 1", spy.entries)
	}

	acc.readErr = errors.New("nope")
	c.Bytes(ctx, "y")
	if spy.errs[OpRead] != 1 {
		t.Fatalf("read errors = %d, want 1", spy.errs[OpRead])
	}

	c.AddClearListener(func(context.Context) error { return errors.New("listener") })
	c.Clear(ctx)
	if spy.clears != 1 || spy.lfailures != 1 || spy.entries != 0 {
		t.Fatalf("clears=%d lfailures=%d entries=%d, want 1/1/0", spy.clears, spy.lfailures, spy.entries)
	}
}
