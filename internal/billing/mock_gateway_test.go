package billing

import (
	"context"
)

// mockGateway は呼び出しを記録するPaymentGatewayのモック。
type mockGateway struct {
	createCouponFn        func(ctx context.Context, params CouponParams) (string, error)
	createCheckoutFn      func(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
	findCustomerFn        func(ctx context.Context, email string) (string, error)
	createPortalSessionFn func(ctx context.Context, customerID, returnURL string) (string, error)

	coupons  []CouponParams
	sessions []*CheckoutSessionParams
	searches []string
	portals  []string
}

func (m *mockGateway) calls() int {
	return len(m.coupons) + len(m.sessions) + len(m.searches) + len(m.portals)
}

func (m *mockGateway) CreateCoupon(ctx context.Context, params CouponParams) (string, error) {
	m.coupons = append(m.coupons, params)
	if m.createCouponFn != nil {
		return m.createCouponFn(ctx, params)
	}
	return "coupon_test_1", nil
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	m.sessions = append(m.sessions, params)
	if m.createCheckoutFn != nil {
		return m.createCheckoutFn(ctx, params)
	}
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (m *mockGateway) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	m.searches = append(m.searches, email)
	if m.findCustomerFn != nil {
		return m.findCustomerFn(ctx, email)
	}
	return "", nil
}

func (m *mockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	m.portals = append(m.portals, returnURL)
	if m.createPortalSessionFn != nil {
		return m.createPortalSessionFn(ctx, customerID, returnURL)
	}
	return "https://billing.stripe.com/p/session/test_1", nil
}

var _ PaymentGateway = (*mockGateway)(nil)
