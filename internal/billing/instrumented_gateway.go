package billing

import (
	"context"
	"time"
)

// ProviderCallRecorder は決済プロバイダー呼び出しの計測先。
// metrics.MetricsCollectorの部分集合として定義する。
type ProviderCallRecorder interface {
	RecordProviderCall(operation string, duration time.Duration, err error)
}

// InstrumentedGateway は呼び出しごとのレイテンシとエラーを記録するPaymentGatewayのラッパー。
type InstrumentedGateway struct {
	next     PaymentGateway
	recorder ProviderCallRecorder
}

// NewInstrumentedGateway はInstrumentedGatewayを生成する。
func NewInstrumentedGateway(next PaymentGateway, recorder ProviderCallRecorder) *InstrumentedGateway {
	return &InstrumentedGateway{next: next, recorder: recorder}
}

func (g *InstrumentedGateway) observe(operation string, start time.Time, err error) {
	g.recorder.RecordProviderCall(operation, time.Since(start), err)
}

func (g *InstrumentedGateway) CreateCoupon(ctx context.Context, params CouponParams) (string, error) {
	start := time.Now()
	id, err := g.next.CreateCoupon(ctx, params)
	g.observe("create_coupon", start, err)
	return id, err
}

func (g *InstrumentedGateway) CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error) {
	start := time.Now()
	session, err := g.next.CreateCheckoutSession(ctx, params)
	g.observe("create_checkout_session", start, err)
	return session, err
}

func (g *InstrumentedGateway) FindCustomerByEmail(ctx context.Context, email string) (string, error) {
	start := time.Now()
	id, err := g.next.FindCustomerByEmail(ctx, email)
	g.observe("search_customer", start, err)
	return id, err
}

func (g *InstrumentedGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	start := time.Now()
	url, err := g.next.CreatePortalSession(ctx, customerID, returnURL)
	g.observe("create_portal_session", start, err)
	return url, err
}

// compile-time interface check
var _ PaymentGateway = (*InstrumentedGateway)(nil)
