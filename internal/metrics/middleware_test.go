package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// Middleware

func TestMiddleware_CountsByChiRoute(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/files/*", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	})

	for _, p := range []string{"/files/a.txt", "/files/b/c.txt"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	got := counterValue(t, m, "http_requests_total", map[string]string{
		"method": "GET", "route": "/files/*", "status": "200",
	})
	if got != 2 {
		t.Fatalf("requests = %v, want 2", got)
	}
	size := findMetric(t, m, "http_response_size_bytes", map[string]string{"route": "/files/*"})
	if size.GetHistogram().GetSampleSum() != 10 {
		t.Fatalf("response bytes sum = %v, want 10", size.GetHistogram().GetSampleSum())
	}
}

func TestMiddleware_OutsideRouterFilledByInnerMux(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Get("/-/cache/stats", func(w http.ResponseWriter, r *http.Request) {})
	h := m.Middleware(r)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/-/cache/stats", nil))
	if counterValue(t, m, "http_requests_total", map[string]string{"route": "/-/cache/stats"}) != 1 {
		t.Fatal("route pattern not recorded when middleware wraps the router")
	}
}

func TestMiddleware_FallsBackToUnmatched(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/some/raw/path", nil))

	if counterValue(t, m, "http_requests_total", map[string]string{"route": "unmatched", "status": "404"}) != 1 {
		t.Fatal("expected unmatched route label")
	}
	if findMetric(t, m, "http_requests_total", map[string]string{"route": "/some/raw/path"}) != nil {
		t.Fatal("raw path leaked into route label")
	}
}

func TestMiddleware_5xxIncrementsErrorCounter(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/x", nil))

	if got := counterValue(t, m, "http_errors_total", map[string]string{"method": "GET"}); got != 1 {
		t.Fatalf("GET errors = %v, want 1", got)
	}
	if got := counterValue(t, m, "http_errors_total", map[string]string{"method": "HEAD"}); got != 1 {
		t.Fatalf("HEAD errors = %v, want 1", got)
	}
}

func TestMiddleware_4xxNotCountedAsError(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if f := gatherMetric(t, m, "http_errors_total"); f != nil && len(f.GetMetric()) != 0 {
		t.Fatalf("404 counted as error: %v", f)
	}
}

func TestMiddleware_InflightReturnsToZero(t *testing.T) {
	m := New()
	var during float64
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = findMetric(t, m, "http_inflight_requests", nil).GetGauge().GetValue()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if during != 1 {
		t.Fatalf("inflight during request = %v, want 1", during)
	}
	if v := findMetric(t, m, "http_inflight_requests", nil).GetGauge().GetValue(); v != 0 {
		t.Fatalf("inflight after request = %v, want 0", v)
	}
}

func TestMiddleware_ImplicitStatusOK(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if counterValue(t, m, "http_requests_total", map[string]string{"status": "200"}) != 1 {
		t.Fatal("handler that writes nothing should be recorded as 200")
	}
}

// traceExemplar

func TestTraceExemplar(t *testing.T) {
	if traceExemplar(context.Background()) != nil {
		t.Fatal("no span should give no exemplar")
	}

	tid := trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	sid := trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8}

	unsampled := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid}))
	if traceExemplar(unsampled) != nil {
		t.Fatal("unsampled span should give no exemplar")
	}

	sampled := trace.ContextWithSpanContext(context.Background(),
		trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled}))
	ex := traceExemplar(sampled)
	if ex["trace_id"] != tid.String() {
		t.Fatalf("trace_id = %q, want %q", ex["trace_id"], tid.String())
	}
}
