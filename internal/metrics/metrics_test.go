package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordHTTPRequest_IncrementsCounterWithLabels はHTTPリクエストカウンタがラベル付きで増加することを検証する。
func TestRecordHTTPRequest_IncrementsCounterWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/teams", 200)
	c.RecordHTTPRequest("GET", "/teams", 200)
	c.RecordHTTPRequest("POST", "/teams", 403)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clubman_http_requests_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				labels := map[string]string{}
				for _, l := range m.GetLabel() {
					labels[l.GetName()] = l.GetValue()
				}
				val := m.GetCounter().GetValue()
				switch labels["status_code"] {
				case "200":
					if val != 2 {
						t.Errorf("http_requests_total{status_code=200} = %v, want 2", val)
					}
				case "403":
					if val != 1 {
						t.Errorf("http_requests_total{status_code=403} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected status_code label: %s", labels["status_code"])
				}
			}
		}
	}
	if !found {
		t.Error("clubman_http_requests_total metric not found")
	}
}

// TestRecordHTTPLatency_ObservesHistogram はレイテンシのヒストグラムに値が記録されることを検証する。
func TestRecordHTTPLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPLatency("/events", 100*time.Millisecond)
	c.RecordHTTPLatency("/events", 2*time.Second)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clubman_http_request_duration_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("clubman_http_request_duration_seconds metric not found")
	}
}

// TestRecordSignIn_Counters はサインイン成功・失敗カウンタが増加することを検証する。
func TestRecordSignIn_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignInSuccess()
	c.RecordSignInSuccess()
	c.RecordSignInFailure("invalid_credentials")
	c.RecordSignInFailure("account_not_active")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	var successVal float64
	var failCombos int
	for _, mf := range metrics {
		switch mf.GetName() {
		case "clubman_signin_success_total":
			successVal = mf.GetMetric()[0].GetCounter().GetValue()
		case "clubman_signin_fail_total":
			failCombos = len(mf.GetMetric())
		}
	}
	if successVal != 2 {
		t.Errorf("signin_success_total = %v, want 2", successVal)
	}
	if failCombos != 2 {
		t.Errorf("signin_fail_total label combinations = %d, want 2", failCombos)
	}
}

// TestRecordScopeDenial_IncrementsCounter はスコープ拒否カウンタがリソース別に増加することを検証する。
func TestRecordScopeDenial_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordScopeDenial("team")
	c.RecordScopeDenial("team")
	c.RecordScopeDenial("event")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clubman_scope_denials_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("clubman_scope_denials_total metric not found")
	}
}

// TestRecordRSVP_IncrementsCounter はRSVP回答カウンタが回答別に増加することを検証する。
func TestRecordRSVP_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRSVP("YES")
	c.RecordRSVP("YES")
	c.RecordRSVP("NO")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "clubman_rsvp_responses_total" {
			found = true
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "YES":
					if val != 2 {
						t.Errorf("rsvp_responses_total{status=YES} = %v, want 2", val)
					}
				case "NO":
					if val != 1 {
						t.Errorf("rsvp_responses_total{status=NO} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("clubman_rsvp_responses_total metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordHTTPRequest("GET", "/dashboard/overview", 200)
	c.RecordHTTPLatency("/dashboard/overview", 500*time.Millisecond)
	c.RecordSignInSuccess()
	c.RecordSignInFailure("invalid_credentials")
	c.RecordScopeDenial("athlete")
	c.RecordRSVP("MAYBE")

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"clubman_http_requests_total",
		"clubman_http_request_duration_seconds",
		"clubman_signin_success_total",
		"clubman_signin_fail_total",
		"clubman_scope_denials_total",
		"clubman_rsvp_responses_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordSignInSuccess()
	c2.RecordSignInSuccess()
	c2.RecordSignInSuccess()

	metrics1, _ := reg1.Gather()
	metrics2, _ := reg2.Gather()

	var val1, val2 float64
	for _, mf := range metrics1 {
		if mf.GetName() == "clubman_signin_success_total" {
			val1 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	for _, mf := range metrics2 {
		if mf.GetName() == "clubman_signin_success_total" {
			val2 = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if val1 != 1 {
		t.Errorf("reg1 signin_success = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 signin_success = %v, want 2", val2)
	}
}
