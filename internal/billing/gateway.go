package billing

import "context"

// CheckoutMode はチェックアウトセッションの課金モード。
type CheckoutMode string

const (
	CheckoutModePayment      CheckoutMode = "payment"
	CheckoutModeSubscription CheckoutMode = "subscription"
)

// PaymentMethodPromptPay はタイの即時送金決済手段。
const PaymentMethodPromptPay = "promptpay"

// LineItem はチェックアウトの明細1行。Quantityは常に1。
type LineItem struct {
	Name       string
	Currency   string
	UnitAmount int64
	// MonthlyRecurring がtrueの場合は月次の継続課金価格になる
	MonthlyRecurring bool
}

// CheckoutSessionParams は決済プロバイダーに渡すチェックアウトセッションの内容。
type CheckoutSessionParams struct {
	Mode                 CheckoutMode
	PaymentMethodTypes   []string
	LineItem             LineItem
	CustomerEmail        string
	CouponID             string
	Metadata             map[string]string
	SubscriptionMetadata map[string]string
	SuccessURL           string
	CancelURL            string
}

// CheckoutSession は作成されたチェックアウトセッション。
type CheckoutSession struct {
	ID  string
	URL string
}

// CouponParams は初回請求のみに適用するクーポンの内容。
type CouponParams struct {
	Name      string
	AmountOff int64
	Currency  string
}

// PaymentGateway は決済プロバイダーのインターフェース。
// プロバイダーがリクエストを拒否した場合は*model.APIError（PROVIDER_ERROR）を返す。
type PaymentGateway interface {
	// CreateCoupon は1回限り適用のクーポンを作成し、そのIDを返す。
	CreateCoupon(ctx context.Context, params CouponParams) (string, error)
	// CreateCheckoutSession はチェックアウトセッションを作成する。
	CreateCheckoutSession(ctx context.Context, params *CheckoutSessionParams) (*CheckoutSession, error)
	// FindCustomerByEmail はメールアドレスが完全一致する顧客のIDを返す。見つからない場合は空文字列を返す。
	FindCustomerByEmail(ctx context.Context, email string) (string, error)
	// CreatePortalSession は顧客の請求管理ポータルのURLを返す。
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}
