package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/hitoshi/satduang/internal/model"
)

// StripeGateway はstripe-goのAPIクライアントを使ったPaymentGatewayの実装。
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway はシークレットキーからStripeGatewayを生成する。
// backendsがnilの場合はStripe本番APIに接続する。テストではhttptestのバックエンドを渡す。
func NewStripeGateway(secretKey string, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, backends)
	return &StripeGateway{api: api}
}

// CreateCoupon は初回請求のみに適用される定額割引クーポンを作成する。
func (g *StripeGateway) CreateCoupon(ctx context.Context, params CouponParams) (string, error) {
	p := &stripe.CouponParams{
		AmountOff:      stripe.Int64(params.AmountOff),
		Currency:       stripe.String(params.Currency),
		Duration:       stripe.String(string(stripe.CouponDurationOnce)),
		MaxRedemptions: stripe.Int64(1),
	}
	if params.Name != "" {
		p.Name = stripe.String(params.Name)
	}
	p.Context = ctx

	coupon, err := g.api.Coupons.New(p)
	if err != nil {
		return "", wrapStripeError(err)
	}
	return coupon.ID, nil
}

// CreateCheckoutSession はチェックアウトセッションを作成する。
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency: stripe.String(params.LineItem.Currency),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(params.LineItem.Name),
		},
		UnitAmount: stripe.Int64(params.LineItem.UnitAmount),
	}
	if params.LineItem.MonthlyRecurring {
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	p := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(params.Mode)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: priceData,
				Quantity:  stripe.Int64(1),
			},
		},
	}
	if len(params.PaymentMethodTypes) > 0 {
		p.PaymentMethodTypes = stripe.StringSlice(params.PaymentMethodTypes)
	}
	if params.CustomerEmail != "" {
		p.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	if params.CouponID != "" {
		p.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}
	for k, v := range params.Metadata {
		p.AddMetadata(k, v)
	}
	if len(params.SubscriptionMetadata) > 0 {
		p.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: params.SubscriptionMetadata,
		}
	}
	p.Context = ctx

	session, err := g.api.CheckoutSessions.New(p)
	if err != nil {
		return nil, wrapStripeError(err)
	}
	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// FindCustomerByEmail はCustomer Search APIで顧客を検索し、最初の一致のIDを返す。
func (g *StripeGateway) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	p := &stripe.CustomerSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("email:'%s'", escapeSearchValue(email)),
			Context: ctx,
		},
	}
	p.Limit = stripe.Int64(1)

	iter := g.api.Customers.Search(p)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", wrapStripeError(err)
	}
	return "", nil
}

// CreatePortalSession は請求管理ポータルのセッションを作成する。
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	p := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	p.Context = ctx

	session, err := g.api.BillingPortalSessions.New(p)
	if err != nil {
		return "", wrapStripeError(err)
	}
	return session.URL, nil
}

// escapeSearchValue は検索クエリの文字列リテラル内のクォートをエスケープする。
func escapeSearchValue(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// wrapStripeError はStripeが拒否したリクエストのエラーをPROVIDER_ERRORに変換する。
// それ以外（通信エラーなど）はそのまま返す。
func wrapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return model.NewProviderError(stripeErr.Msg)
	}
	return err
}

// compile-time interface check
var _ PaymentGateway = (*StripeGateway)(nil)
