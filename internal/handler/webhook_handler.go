package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/satduang/internal/billing"
	"github.com/hitoshi/satduang/internal/metrics"
	"github.com/hitoshi/satduang/internal/model"
)

// maxWebhookBodyBytes はWebhookペイロードの上限。
const maxWebhookBodyBytes = 1 << 16

// FulfillmentServiceInterface はWebhook処理に必要なサービスインターフェース。
type FulfillmentServiceInterface interface {
	HandleEvent(ctx context.Context, payload []byte, signature string) (billing.FulfillmentOutcome, error)
}

// WebhookHandler は POST /stripe-webhook を処理する。
type WebhookHandler struct {
	service FulfillmentServiceInterface
	metrics metrics.MetricsCollector
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(service FulfillmentServiceInterface, collector metrics.MetricsCollector) *WebhookHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &WebhookHandler{service: service, metrics: collector}
}

// ServeHTTP は署名付きのイベントを検証して処理する。
// 署名検証には加工前のボディが必要なため、JSONとしてデコードしない。
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.metrics.RecordWebhookEvent("rejected")
		handleServiceError(w, model.NewInvalidRequestError(fmt.Sprintf("Webhook Error: %v", err)))
		return
	}

	outcome, err := h.service.HandleEvent(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.metrics.RecordWebhookEvent("rejected")
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordWebhookEvent(string(outcome))
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
