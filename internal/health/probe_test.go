package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keithlinneman/filecache/internal/filecache"
	"github.com/keithlinneman/filecache/internal/resource"
)

// Fixed

func TestFixed(t *testing.T) {
	if err := Fixed(true, "ignored").Check(context.Background()); err != nil {
		t.Fatalf("Fixed(true) = %v", err)
	}
	if err := Fixed(false, "disk full").Check(context.Background()); err == nil || err.Error() != "disk full" {
		t.Fatalf("Fixed(false) = %v, want disk full", err)
	}
	if err := Fixed(false, "").Check(context.Background()); err == nil || err.Error() != "unhealthy" {
		t.Fatalf("Fixed(false, \"\") = %v, want unhealthy", err)
	}
}

// All

func TestAll(t *testing.T) {
	ctx := context.Background()
	if err := All().Check(ctx); err != nil {
		t.Fatalf("empty All = %v", err)
	}
	if err := All(nil, Fixed(true, "")).Check(ctx); err != nil {
		t.Fatalf("All with nil = %v", err)
	}
	err := All(Fixed(true, ""), Fixed(false, "first"), Fixed(false, "second")).Check(ctx)
	if err == nil || err.Error() != "first" {
		t.Fatalf("All = %v, want first", err)
	}
}

func TestAll_ShortCircuits(t *testing.T) {
	var called bool
	All(Fixed(false, "x"), CheckFunc(func(context.Context) error {
		called = true
		return nil
	})).Check(context.Background())
	if called {
		t.Fatal("probe after a failure should not run")
	}
}

// Any

func TestAny(t *testing.T) {
	ctx := context.Background()
	if err := Any(Fixed(false, "a"), Fixed(true, "")).Check(ctx); err != nil {
		t.Fatalf("Any with one passing = %v", err)
	}
	if err := Any(Fixed(false, "a"), Fixed(false, "b")).Check(ctx); err == nil || err.Error() != "b" {
		t.Fatalf("Any all failing = %v, want b", err)
	}
	if err := Any().Check(ctx); err == nil {
		t.Fatal("empty Any should fail")
	}
	if err := Any(nil, nil).Check(ctx); err == nil {
		t.Fatal("Any of only nils should fail")
	}
}

// Timeout

func TestTimeout(t *testing.T) {
	p := Timeout(CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond)

	start := time.Now()
	err := p.Check(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("Timeout did not bound the probe")
	}
}

// Source

func sourceOf(err error) filecache.Accessor {
	return filecache.Funcs{
		FingerprintFunc: func(context.Context, string) (filecache.Fingerprint, error) {
			return filecache.Comparable[int]{Value: 1}, err
		},
	}
}

func TestSource(t *testing.T) {
	ctx := context.Background()
	if err := Source(sourceOf(nil), "index.html").Check(ctx); err != nil {
		t.Fatalf("reachable source = %v", err)
	}

	missing := fmt.Errorf("%w: index.html", resource.ErrNotFound)
	if err := Source(sourceOf(missing), "index.html").Check(ctx); err != nil {
		t.Fatalf("not found should pass, got %v", err)
	}

	boom := errors.New("connection refused")
	err := Source(sourceOf(boom), "index.html").Check(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped connection error", err)
	}
}

func TestSource_PassesName(t *testing.T) {
	var got string
	acc := filecache.Funcs{
		FingerprintFunc: func(_ context.Context, name string) (filecache.Fingerprint, error) {
			got = name
			return nil, nil
		},
	}
	Source(acc, "robots.txt").Check(context.Background())
	if got != "robots.txt" {
		t.Fatalf("name = %q", got)
	}
}

// ShutdownGate

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	ctx := context.Background()
	if err := g.Probe().Check(ctx); err != nil || g.Draining() {
		t.Fatalf("new gate should be open, got %v", err)
	}

	g.Set("shutting down")
	if err := g.Probe().Check(ctx); err == nil || err.Error() != "shutting down" {
		t.Fatalf("closed gate = %v", err)
	}

	g.Set("")
	if err := g.Probe().Check(ctx); err == nil || err.Error() != "draining" {
		t.Fatalf("empty reason = %v, want draining", err)
	}

	g.Clear()
	if err := g.Probe().Check(ctx); err != nil {
		t.Fatalf("cleared gate = %v", err)
	}
}

func TestShutdownGate_Concurrent(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); g.Set("x"); g.Clear() }()
		go func() { defer wg.Done(); p.Check(context.Background()) }()
	}
	wg.Wait()
}

func TestAll_GateAndSource(t *testing.T) {
	var g ShutdownGate
	p := All(g.Probe(), Source(sourceOf(nil), "index.html"))
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("ready = %v", err)
	}
	g.Set("shutting down")
	if err := p.Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("gate should fail first, got %v", err)
	}
}
