package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/satduang/internal/model"
)

// セッションメタデータのキー。入金反映（FulfillmentService）はこのキーで読み取る。
const (
	MetadataUserID        = "userId"
	MetadataPackageID     = "packageId"
	MetadataPackageKind   = "packageKind"
	MetadataCredits       = "credits"
	MetadataPromoApplied  = "promoApplied"
	MetadataPromoDiscount = "promoDiscount"
)

// CheckoutRequest はチェックアウト作成リクエスト。
type CheckoutRequest struct {
	PackageID    string
	AccountID    string
	AccountEmail string
	// Origin はリクエストのOriginヘッダー。空の場合はサイトURLを使う。
	Origin string
}

// CheckoutResult はチェックアウト作成結果。
type CheckoutResult struct {
	SessionID     string
	URL           string
	Package       model.Package
	Pricing       model.Pricing
	CouponCreated bool
}

// CheckoutService はパッケージと価格設定からチェックアウトセッションを構築する。
// ローカルには何も書き込まず、セッションのメタデータが後続の入金反映の唯一の記録になる。
type CheckoutService struct {
	gateway PaymentGateway
	pricing *PricingResolver
	siteURL string
}

// NewCheckoutService はCheckoutServiceを生成する。
func NewCheckoutService(gateway PaymentGateway, pricing *PricingResolver, siteURL string) *CheckoutService {
	return &CheckoutService{
		gateway: gateway,
		pricing: pricing,
		siteURL: siteURL,
	}
}

// CreateCheckout はチェックアウトセッションを作成する。
// 入力が不正な場合は決済プロバイダーを一切呼び出さない。
func (s *CheckoutService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.PackageID == "" || req.AccountID == "" {
		return nil, model.NewInvalidRequestError("Missing packageId or userId")
	}
	// 入金反映はuserIdでアカウントを更新するため、UUIDでないIDでは決済させない
	if _, err := uuid.Parse(req.AccountID); err != nil {
		return nil, model.NewInvalidRequestError("Invalid userId")
	}

	id, ok := model.ParsePackageID(req.PackageID)
	if !ok {
		return nil, model.NewInvalidPackageError()
	}
	pkg := id.Package()

	origin := resolveOrigin(req.Origin, s.siteURL)
	params := &CheckoutSessionParams{
		CustomerEmail: req.AccountEmail,
		SuccessURL:    origin + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     origin + "/payment/cancel",
		LineItem: LineItem{
			Name:       pkg.Label,
			Currency:   pkg.Currency,
			UnitAmount: pkg.Price,
		},
	}

	result := &CheckoutResult{
		Package: pkg,
		Pricing: model.Pricing{
			Status:     model.PricingResolved,
			BasePrice:  pkg.Price,
			FinalPrice: pkg.Price,
		},
	}

	if pkg.IsSubscription() {
		params.Mode = CheckoutModeSubscription
		params.LineItem.MonthlyRecurring = true

		result.Pricing = s.pricing.Resolve(ctx, pkg.Price)
		if result.Pricing.PromoApplied {
			couponID, err := s.gateway.CreateCoupon(ctx, CouponParams{
				Name:      fmt.Sprintf("%s -%d", pkg.Label, result.Pricing.DiscountAmount/100),
				AmountOff: result.Pricing.DiscountAmount,
				Currency:  pkg.Currency,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create coupon: %w", err)
			}
			params.CouponID = couponID
			result.CouponCreated = true
		}
	} else {
		params.Mode = CheckoutModePayment
		params.PaymentMethodTypes = []string{PaymentMethodPromptPay}
	}

	params.Metadata = checkoutMetadata(req.AccountID, pkg, result.Pricing)
	if pkg.IsSubscription() {
		params.SubscriptionMetadata = checkoutMetadata(req.AccountID, pkg, result.Pricing)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	result.SessionID = session.ID
	result.URL = session.URL

	slog.Info("checkout session created",
		slog.String("account_id", req.AccountID),
		slog.String("package_id", pkg.ID.String()),
		slog.String("session_id", session.ID),
		slog.Bool("promo_applied", result.Pricing.PromoApplied),
		slog.String("pricing_status", string(result.Pricing.Status)),
	)

	return result, nil
}

// checkoutMetadata はセッションに添付するメタデータを構築する。
// creditsは単発購入パッケージのみに付与する。
func checkoutMetadata(accountID string, pkg model.Package, pricing model.Pricing) map[string]string {
	md := map[string]string{
		MetadataUserID:        accountID,
		MetadataPackageID:     pkg.ID.String(),
		MetadataPackageKind:   string(pkg.Kind),
		MetadataPromoApplied:  strconv.FormatBool(pricing.PromoApplied),
		MetadataPromoDiscount: strconv.FormatInt(pricing.DiscountAmount, 10),
	}
	if !pkg.IsSubscription() {
		md[MetadataCredits] = strconv.Itoa(pkg.Credits)
	}
	return md
}

// resolveOrigin はリダイレクトURLの基点を決める。
func resolveOrigin(origin, fallback string) string {
	if origin == "" {
		origin = fallback
	}
	return strings.TrimRight(origin, "/")
}
