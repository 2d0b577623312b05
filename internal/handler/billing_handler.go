package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/satduang/internal/billing"
	"github.com/hitoshi/satduang/internal/metrics"
)

// CheckoutServiceInterface はチェックアウト作成に必要なサービスインターフェース。
type CheckoutServiceInterface interface {
	CreateCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutResult, error)
}

// PortalServiceInterface はポータル作成に必要なサービスインターフェース。
type PortalServiceInterface interface {
	CreatePortal(ctx context.Context, email, origin string) (string, error)
}

// BillingHandler は /create-checkout と /create-portal を処理する。
type BillingHandler struct {
	checkout CheckoutServiceInterface
	portal   PortalServiceInterface
	metrics  metrics.MetricsCollector
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(checkout CheckoutServiceInterface, portal PortalServiceInterface, collector metrics.MetricsCollector) *BillingHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &BillingHandler{
		checkout: checkout,
		portal:   portal,
		metrics:  collector,
	}
}

type checkoutRequest struct {
	PackageID string `json:"packageId"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type portalRequest struct {
	UserEmail string `json:"userEmail"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// CreateCheckout はチェックアウトセッションを作成し、そのURLを返す。
// POST /create-checkout
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkout.CreateCheckout(r.Context(), billing.CheckoutRequest{
		PackageID:    req.PackageID,
		AccountID:    req.UserID,
		AccountEmail: req.UserEmail,
		Origin:       r.Header.Get("Origin"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordCheckoutSession(result.Package.ID.String(), result.Pricing.PromoApplied)
	writeJSON(w, http.StatusOK, urlResponse{URL: result.URL})
}

// CreatePortal は請求管理ポータルのURLを返す。
// POST /create-portal
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.portal.CreatePortal(r.Context(), req.UserEmail, r.Header.Get("Origin"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordPortalSession()
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}
