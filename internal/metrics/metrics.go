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
// ハンドラーや決済ゲートウェイから利用する。
type MetricsCollector interface {
	RecordLogin(outcome string)
	RecordCheckoutSession(packageID string, promoApplied bool)
	RecordPortalSession()
	RecordWebhookEvent(outcome string)
	RecordProviderCall(operation string, duration time.Duration, err error)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	portals         prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satduang_line_login_total",
			Help: "LINEログインコールバックの結果別件数",
		}, []string{"outcome"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satduang_checkout_sessions_total",
			Help: "作成したチェックアウトセッション数",
		}, []string{"package", "promo"}),
		portals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satduang_portal_sessions_total",
			Help: "作成したカスタマーポータルセッション数",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satduang_webhook_events_total",
			Help: "Stripe Webhookイベントの処理結果別件数",
		}, []string{"outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "satduang_provider_call_seconds",
			Help:    "決済プロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "satduang_provider_errors_total",
			Help: "決済プロバイダー呼び出しのエラー数",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.logins,
		c.checkouts,
		c.portals,
		c.webhookEvents,
		c.providerLatency,
		c.providerErrors,
	)

	return c
}

// RecordLogin はログインコールバックの結果を記録する。
// outcomeは"success"またはlogin_errorのコード。
func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// RecordCheckoutSession はチェックアウトセッションの作成を記録する。
func (c *Collector) RecordCheckoutSession(packageID string, promoApplied bool) {
	c.checkouts.WithLabelValues(packageID, strconv.FormatBool(promoApplied)).Inc()
}

// RecordPortalSession はポータルセッションの作成を記録する。
func (c *Collector) RecordPortalSession() {
	c.portals.Inc()
}

// RecordWebhookEvent はWebhookイベントの処理結果を記録する。
func (c *Collector) RecordWebhookEvent(outcome string) {
	c.webhookEvents.WithLabelValues(outcome).Inc()
}

// RecordProviderCall は決済プロバイダー呼び出しのレイテンシとエラーを記録する。
func (c *Collector) RecordProviderCall(operation string, duration time.Duration, err error) {
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.providerErrors.WithLabelValues(operation).Inc()
	}
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordLogin(string)                              {}
func (NopCollector) RecordCheckoutSession(string, bool)              {}
func (NopCollector) RecordPortalSession()                            {}
func (NopCollector) RecordWebhookEvent(string)                       {}
func (NopCollector) RecordProviderCall(string, time.Duration, error) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
