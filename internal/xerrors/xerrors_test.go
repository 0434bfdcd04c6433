package xerrors

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"testing"
)

func frameName(pc uintptr) string {
	fr, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return fr.Function
}

// New / Newf

func TestNew(t *testing.T) {
	err := New("boom")
	if err.Error() != "boom" {
		t.Fatalf("Error() = %q", err)
	}
	pcs := err.(*stacked).StackPCs()
	if len(pcs) == 0 || !strings.HasSuffix(frameName(pcs[0]), "TestNew") {
		t.Fatalf("first frame = %q, want the caller", frameName(pcs[0]))
	}
}

func TestNewf(t *testing.T) {
	err := Newf("missing %s (%d)", "x", 3)
	if err.Error() != "missing x (3)" {
		t.Fatalf("Error() = %q", err)
	}
}

// Wrap / Wrapf

func TestWrap(t *testing.T) {
	err := Wrap(fs.ErrNotExist, "stat index.html")
	if err.Error() != "stat index.html: file does not exist" {
		t.Fatalf("Error() = %q", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("Wrap should unwrap to the cause")
	}
	if got := frameName(err.(*wrapped).PC()); !strings.HasSuffix(got, "TestWrap") {
		t.Fatalf("pc frame = %q, want the caller", got)
	}
}

func TestWrapf(t *testing.T) {
	err := Wrapf(fs.ErrPermission, "open %s", "a/b")
	if err.Error() != "open a/b: permission denied" || !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("Wrapf = %v", err)
	}
}

func TestNilPassthrough(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil || WithStack(nil) != nil || EnsureTrace(nil) != nil {
		t.Fatal("nil in should be nil out")
	}
}

// WithStack / EnsureTrace

func TestWithStack(t *testing.T) {
	base := errors.New("base")
	err := WithStack(base)
	if err.Error() != "base" || !errors.Is(err, base) {
		t.Fatalf("WithStack = %v", err)
	}
}

func TestEnsureTrace_AddsOnce(t *testing.T) {
	base := errors.New("base")
	once := EnsureTrace(base)
	if _, ok := once.(*stacked); !ok {
		t.Fatalf("EnsureTrace should add a stack, got %T", once)
	}
	if twice := EnsureTrace(once); twice != once {
		t.Fatal("EnsureTrace should not stack twice")
	}
	// a stack deeper in the chain counts
	wrapped := Wrap(once, "ctx")
	if got := EnsureTrace(wrapped); got != wrapped {
		t.Fatal("EnsureTrace should see a wrapped stack")
	}
}

func TestAs_ThroughWrappers(t *testing.T) {
	var pe *fs.PathError
	err := Wrap(WithStack(&fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}), "read")
	if !errors.As(err, &pe) || pe.Path != "x" {
		t.Fatal("errors.As should reach the PathError")
	}
}
