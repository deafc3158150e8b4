package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// mockHTTPMetricsRecorder はHTTPMetricsRecorderのモック実装。
type mockHTTPMetricsRecorder struct {
	requests  []recordedRequest
	latencies []string
	denials   []string
}

type recordedRequest struct {
	method string
	route  string
	status int
}

func (m *mockHTTPMetricsRecorder) RecordHTTPRequest(method, route string, statusCode int) {
	m.requests = append(m.requests, recordedRequest{method, route, statusCode})
}

func (m *mockHTTPMetricsRecorder) RecordHTTPLatency(route string, duration time.Duration) {
	m.latencies = append(m.latencies, route)
}

func (m *mockHTTPMetricsRecorder) RecordScopeDenial(resource string) {
	m.denials = append(m.denials, resource)
}

func TestMetricsMiddleware_RecordsRoutePattern(t *testing.T) {
	rec := &mockHTTPMetricsRecorder{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/api/teams/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/teams/team-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(rec.requests) != 1 {
		t.Fatalf("requests length = %d, want 1", len(rec.requests))
	}
	got := rec.requests[0]
	if got.route != "/api/teams/{id}" {
		t.Errorf("route = %q, want /api/teams/{id}", got.route)
	}
	if got.method != http.MethodGet {
		t.Errorf("method = %q, want GET", got.method)
	}
	if got.status != http.StatusOK {
		t.Errorf("status = %d, want %d", got.status, http.StatusOK)
	}
	if len(rec.latencies) != 1 || rec.latencies[0] != "/api/teams/{id}" {
		t.Errorf("latencies = %v, want [/api/teams/{id}]", rec.latencies)
	}
}

func TestMetricsMiddleware_RecordsScopeDenialOn403(t *testing.T) {
	rec := &mockHTTPMetricsRecorder{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/api/athletes/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/athletes/athlete-9", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(rec.denials) != 1 {
		t.Fatalf("denials length = %d, want 1", len(rec.denials))
	}
	if rec.denials[0] != "athletes" {
		t.Errorf("denial resource = %q, want athletes", rec.denials[0])
	}
}

func TestMetricsMiddleware_NoDenialOnSuccess(t *testing.T) {
	rec := &mockHTTPMetricsRecorder{}

	r := chi.NewRouter()
	r.Use(NewMetricsMiddleware(rec))
	r.Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if len(rec.denials) != 0 {
		t.Errorf("denials = %v, want empty", rec.denials)
	}
}

func TestResourceFromRoute(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/teams/{id}/roster", "teams"},
		{"/api/users", "users"},
		{"/auth/me", "auth"},
		{"/healthz", "healthz"},
		{"/", "unknown"},
	}

	for _, tt := range tests {
		if got := resourceFromRoute(tt.route); got != tt.want {
			t.Errorf("resourceFromRoute(%q) = %q, want %q", tt.route, got, tt.want)
		}
	}
}
