// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int)
	RecordHTTPLatency(route string, duration time.Duration)
	RecordSignInSuccess()
	RecordSignInFailure(reason string)
	RecordScopeDenial(resource string)
	RecordRSVP(status string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	signInSuccess prometheus.Counter
	signInFail    *prometheus.CounterVec
	scopeDenials  *prometheus.CounterVec
	rsvpResponses *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubman_http_requests_total",
			Help: "HTTPリクエストの合計数（メソッド・ルート・ステータスコード別）",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clubman_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		signInSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clubman_signin_success_total",
			Help: "サインイン成功の合計数",
		}),
		signInFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubman_signin_fail_total",
			Help: "サインイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		scopeDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubman_scope_denials_total",
			Help: "スコープ認可による拒否の合計数（リソース別）",
		}, []string{"resource"}),
		rsvpResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clubman_rsvp_responses_total",
			Help: "RSVP回答の合計数（回答別）",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.signInSuccess,
		c.signInFail,
		c.scopeDenials,
		c.rsvpResponses,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はHTTPリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(route string, duration time.Duration) {
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSignInSuccess はサインイン成功を記録する。
func (c *Collector) RecordSignInSuccess() {
	c.signInSuccess.Inc()
}

// RecordSignInFailure はサインイン失敗を理由別に記録する。
func (c *Collector) RecordSignInFailure(reason string) {
	c.signInFail.WithLabelValues(reason).Inc()
}

// RecordScopeDenial はスコープ認可による拒否をリソース別に記録する。
func (c *Collector) RecordScopeDenial(resource string) {
	c.scopeDenials.WithLabelValues(resource).Inc()
}

// RecordRSVP はRSVP回答を記録する。
func (c *Collector) RecordRSVP(status string) {
	c.rsvpResponses.WithLabelValues(status).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
