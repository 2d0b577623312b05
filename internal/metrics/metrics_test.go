package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// gatherFamily は指定名のメトリクスファミリーを返す。見つからない場合はテスト失敗。
func gatherFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

// labelValue は指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLogin_CountsByOutcome はログイン結果がラベル別に集計されることを検証する。
func TestRecordLogin_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordLogin("success")
	c.RecordLogin("invalid_state")

	mf := gatherFamily(t, reg, "satduang_line_login_total")
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		val := m.GetCounter().GetValue()
		switch labelValue(m, "outcome") {
		case "success":
			if val != 2 {
				t.Errorf("login_total{outcome=success} = %v, want 2", val)
			}
		case "invalid_state":
			if val != 1 {
				t.Errorf("login_total{outcome=invalid_state} = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected outcome label: %s", labelValue(m, "outcome"))
		}
	}
}

func TestRecordCheckoutSession_LabelsPackageAndPromo(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCheckoutSession("premium_monthly", true)

	mf := gatherFamily(t, reg, "satduang_checkout_sessions_total")
	m := mf.GetMetric()[0]
	if labelValue(m, "package") != "premium_monthly" || labelValue(m, "promo") != "true" {
		t.Errorf("labels = %v", m.GetLabel())
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("checkout_sessions_total = %v, want 1", m.GetCounter().GetValue())
	}
}

func TestRecordPortalSession_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPortalSession()
	c.RecordPortalSession()

	mf := gatherFamily(t, reg, "satduang_portal_sessions_total")
	if val := mf.GetMetric()[0].GetCounter().GetValue(); val != 2 {
		t.Errorf("portal_sessions_total = %v, want 2", val)
	}
}

// TestRecordProviderCall_ObservesLatencyAndErrors はレイテンシとエラー数が記録されることを検証する。
func TestRecordProviderCall_ObservesLatencyAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProviderCall("create_checkout_session", 100*time.Millisecond, nil)
	c.RecordProviderCall("create_checkout_session", 2*time.Second, errors.New("card_declined"))

	h := gatherFamily(t, reg, "satduang_provider_call_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
	}
	// 合計は0.1 + 2.0 = 2.1秒
	if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
		t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
	}

	errs := gatherFamily(t, reg, "satduang_provider_errors_total").GetMetric()[0]
	if errs.GetCounter().GetValue() != 1 {
		t.Errorf("provider_errors_total = %v, want 1", errs.GetCounter().GetValue())
	}
}

// TestHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("success")
	c.RecordCheckoutSession("starter", false)
	c.RecordPortalSession()
	c.RecordWebhookEvent("fulfilled")
	c.RecordProviderCall("create_coupon", 50*time.Millisecond, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"satduang_line_login_total",
		"satduang_checkout_sessions_total",
		"satduang_portal_sessions_total",
		"satduang_webhook_events_total",
		"satduang_provider_call_seconds",
	}
	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordPortalSession()
	c2.RecordPortalSession()
	c2.RecordPortalSession()

	val1 := gatherFamily(t, reg1, "satduang_portal_sessions_total").GetMetric()[0].GetCounter().GetValue()
	val2 := gatherFamily(t, reg2, "satduang_portal_sessions_total").GetMetric()[0].GetCounter().GetValue()

	if val1 != 1 {
		t.Errorf("reg1 portal_sessions = %v, want 1", val1)
	}
	if val2 != 2 {
		t.Errorf("reg2 portal_sessions = %v, want 2", val2)
	}
}
