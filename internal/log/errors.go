package log

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

type hasPC interface{ PC() uintptr }

type hasStack interface{ StackPCs() []uintptr }

// errorKV returns the attributes Error attaches for err.
func errorKV(err error, links bool, maxLinks int) []any {
	surface, root := classifyTypes(err)
	kv := []any{
		"err", err,
		"error_type", surface,
		"cause_type", root,
	}
	if chain := errorChain(err); len(chain) > 1 {
		kv = append(kv, "error_chain", chain)
	}
	if links {
		kv = append(kv, "error_links", errorLinks(err, maxLinks))
	}
	return kv
}

// walk visits err and everything it wraps depth first, following both
// Unwrap() error and Unwrap() []error.
func walk(err error, fn func(error) bool) {
	var visit func(error) bool
	visit = func(e error) bool {
		if e == nil {
			return true
		}
		if !fn(e) {
			return false
		}
		switch u := e.(type) {
		case interface{ Unwrap() error }:
			return visit(u.Unwrap())
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if !visit(inner) {
					return false
				}
			}
		}
		return true
	}
	visit(err)
}

// errorChain lists distinct messages down the wrap tree.
func errorChain(err error) []string {
	var out []string
	seen := map[string]bool{}
	walk(err, func(e error) bool {
		if msg := e.Error(); !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
		return true
	})
	return out
}

// errorLinks locates each wrap that recorded a call site. The outermost
// error is always included.
func errorLinks(err error, max int) []map[string]any {
	var links []map[string]any
	depth := 0
	walk(err, func(e error) bool {
		if max > 0 && depth >= max {
			return false
		}
		link := map[string]any{"msg": e.Error()}
		var fr runtime.Frame
		var ok bool
		switch x := e.(type) {
		case hasPC:
			if pc := x.PC(); pc != 0 {
				fr, _ = runtime.CallersFrames([]uintptr{pc}).Next()
				ok = fr.Function != ""
			}
		case hasStack:
			fr, ok = firstExternalFrame(x.StackPCs())
		}
		if ok {
			link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
		}
		if depth == 0 || ok {
			links = append(links, link)
		}
		depth++
		return true
	})
	return links
}

// stackOf returns the first captured stack in err's wrap tree.
func stackOf(err error) []uintptr {
	var pcs []uintptr
	walk(err, func(e error) bool {
		if hs, ok := e.(hasStack); ok && len(hs.StackPCs()) > 0 {
			pcs = hs.StackPCs()
			return false
		}
		return true
	})
	return pcs
}

// classifyTypes names the first non-wrapper type (surface) and the innermost
// error type (root).
func classifyTypes(err error) (surface, root string) {
	walk(err, func(e error) bool {
		t := reflect.TypeOf(e)
		u := t
		for u.Kind() == reflect.Pointer {
			u = u.Elem()
		}
		switch {
		case strings.Contains(u.PkgPath(), "/internal/xerrors"):
		case u.PkgPath() == "fmt" && strings.HasPrefix(u.Name(), "wrapError"):
		default:
			if surface == "" {
				surface = t.String()
			}
		}
		root = fmt.Sprintf("%T", e)
		return true
	})
	if surface == "" {
		surface = fmt.Sprintf("%T", err)
	}
	return surface, root
}
