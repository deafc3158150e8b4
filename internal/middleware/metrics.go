package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPMetricsRecorder はHTTPリクエストのメトリクス記録インターフェース。
// metrics.Collectorが実装する。
type HTTPMetricsRecorder interface {
	RecordHTTPRequest(method, route string, statusCode int)
	RecordHTTPLatency(route string, duration time.Duration)
	RecordScopeDenial(resource string)
}

// NewMetricsMiddleware はリクエストごとにメトリクスを記録するミドルウェアを返す。
// ルートラベルにはchiのルートパターンを使用し、パスパラメータによる
// カーディナリティの爆発を防ぐ。403応答はリソース別の拒否カウンタにも記録する。
func NewMetricsMiddleware(recorder HTTPMetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			recorder.RecordHTTPRequest(r.Method, route, rec.statusCode)
			recorder.RecordHTTPLatency(route, time.Since(start))

			if rec.statusCode == http.StatusForbidden {
				recorder.RecordScopeDenial(resourceFromRoute(route))
			}
		})
	}
}

// resourceFromRoute はルートパターンからリソース名を抽出する。
// "/api/teams/{id}/roster" は "teams"、"/auth/me" は "auth" になる。
func resourceFromRoute(route string) string {
	parts := strings.Split(strings.TrimPrefix(route, "/"), "/")
	if len(parts) > 1 && parts[0] == "api" {
		return parts[1]
	}
	if parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}
