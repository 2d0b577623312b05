package billing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v82"

	"github.com/hitoshi/satduang/internal/model"
)

// newTestStripeGateway はhttptestサーバーに接続するStripeGatewayを返す。
func newTestStripeGateway(t *testing.T, handler http.HandlerFunc) *StripeGateway {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(server.URL),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})

	return NewStripeGateway("sk_test_123", &stripe.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

func TestStripeGateway_CreateCheckoutSession_OneTime(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}

		want := map[string]string{
			"mode":                                          "payment",
			"payment_method_types[0]":                       "promptpay",
			"line_items[0][price_data][currency]":           "thb",
			"line_items[0][price_data][unit_amount]":        "2900",
			"line_items[0][price_data][product_data][name]": "Starter - 5 เครดิต",
			"line_items[0][quantity]":                       "1",
			"metadata[userId]":                              "account-1",
			"metadata[credits]":                             "5",
			"customer_email":                                "line_U1@satduangdao.com",
			"success_url":                                   "https://satduangdao.com/payment/success?session_id={CHECKOUT_SESSION_ID}",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		if r.PostForm.Get("line_items[0][price_data][recurring][interval]") != "" {
			t.Error("one-time line item must not be recurring")
		}

		writeJSON(w, http.StatusOK, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	})

	session, err := gw.CreateCheckoutSession(context.Background(), &CheckoutSessionParams{
		Mode:               CheckoutModePayment,
		PaymentMethodTypes: []string{PaymentMethodPromptPay},
		LineItem:           LineItem{Name: "Starter - 5 เครดิต", Currency: "thb", UnitAmount: 2900},
		CustomerEmail:      "line_U1@satduangdao.com",
		Metadata:           map[string]string{"userId": "account-1", "credits": "5"},
		SuccessURL:         "https://satduangdao.com/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:          "https://satduangdao.com/payment/cancel",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if session.ID != "cs_test_1" || session.URL != "https://checkout.stripe.com/c/pay/cs_test_1" {
		t.Errorf("session = %+v", session)
	}
}

func TestStripeGateway_CreateCheckoutSession_SubscriptionWithCoupon(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		want := map[string]string{
			"mode": "subscription",
			"line_items[0][price_data][recurring][interval]": "month",
			"discounts[0][coupon]":                           "coupon_abc",
			"subscription_data[metadata][userId]":            "account-1",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		writeJSON(w, http.StatusOK, `{"id":"cs_test_2","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_2"}`)
	})

	_, err := gw.CreateCheckoutSession(context.Background(), &CheckoutSessionParams{
		Mode:                 CheckoutModeSubscription,
		LineItem:             LineItem{Name: "Premium", Currency: "thb", UnitAmount: 29900, MonthlyRecurring: true},
		CouponID:             "coupon_abc",
		Metadata:             map[string]string{"userId": "account-1"},
		SubscriptionMetadata: map[string]string{"userId": "account-1"},
		SuccessURL:           "https://satduangdao.com/payment/success",
		CancelURL:            "https://satduangdao.com/payment/cancel",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
}

func TestStripeGateway_CreateCoupon(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/coupons" {
			t.Errorf("path = %q", r.URL.Path)
		}
		r.ParseForm()
		want := map[string]string{
			"amount_off": "10000",
			"currency":   "thb",
			"duration":   "once",
		}
		for k, v := range want {
			if got := r.PostForm.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
		writeJSON(w, http.StatusOK, `{"id":"coupon_abc","object":"coupon","amount_off":10000,"currency":"thb","duration":"once"}`)
	})

	id, err := gw.CreateCoupon(context.Background(), CouponParams{AmountOff: 10000, Currency: "thb"})
	if err != nil {
		t.Fatalf("CreateCoupon() error = %v", err)
	}
	if id != "coupon_abc" {
		t.Errorf("id = %q, want coupon_abc", id)
	}
}

func TestStripeGateway_ProviderError_MessageVerbatim(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"The payment method type \"promptpay\" is invalid."}}`)
	})

	_, err := gw.CreateCheckoutSession(context.Background(), &CheckoutSessionParams{
		Mode:     CheckoutModePayment,
		LineItem: LineItem{Name: "x", Currency: "thb", UnitAmount: 100},
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeProviderError {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeProviderError)
	}
	if apiErr.Message != `The payment method type "promptpay" is invalid.` {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestStripeGateway_FindCustomerByEmail(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		body      string
		wantQuery string
		want      string
	}{
		{
			name:      "一致あり",
			email:     "line_U1@satduangdao.com",
			body:      `{"object":"search_result","url":"/v1/customers/search","has_more":false,"data":[{"id":"cus_123","object":"customer","email":"line_U1@satduangdao.com"}]}`,
			wantQuery: "email:'line_U1@satduangdao.com'",
			want:      "cus_123",
		},
		{
			name:      "一致なし",
			email:     "line_U1@satduangdao.com",
			body:      `{"object":"search_result","url":"/v1/customers/search","has_more":false,"data":[]}`,
			wantQuery: "email:'line_U1@satduangdao.com'",
			want:      "",
		},
		{
			// クォートで検索条件を抜け出せないようにエスケープする
			name:      "シングルクォートを含む",
			email:     "o'brien' OR email:'x@satduangdao.com",
			body:      `{"object":"search_result","url":"/v1/customers/search","has_more":false,"data":[]}`,
			wantQuery: `email:'o\'brien\' OR email:\'x@satduangdao.com'`,
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/customers/search" {
					t.Errorf("path = %q", r.URL.Path)
				}
				if got := r.URL.Query().Get("query"); got != tt.wantQuery {
					t.Errorf("query = %q, want %q", got, tt.wantQuery)
				}
				writeJSON(w, http.StatusOK, tt.body)
			})

			got, err := gw.FindCustomerByEmail(context.Background(), tt.email)
			if err != nil {
				t.Fatalf("FindCustomerByEmail() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("customer = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapeSearchValue(t *testing.T) {
	if got := escapeSearchValue("o'brien@satduangdao.com"); got != `o\'brien@satduangdao.com` {
		t.Errorf("escapeSearchValue() = %q", got)
	}
}

func TestStripeGateway_CreatePortalSession(t *testing.T) {
	gw := newTestStripeGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/billing_portal/sessions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		r.ParseForm()
		if r.PostForm.Get("customer") != "cus_123" {
			t.Errorf("customer = %q", r.PostForm.Get("customer"))
		}
		if r.PostForm.Get("return_url") != "https://satduangdao.com/profile" {
			t.Errorf("return_url = %q", r.PostForm.Get("return_url"))
		}
		writeJSON(w, http.StatusOK, `{"id":"bps_1","object":"billing_portal.session","url":"https://billing.stripe.com/p/session/bps_1"}`)
	})

	url, err := gw.CreatePortalSession(context.Background(), "cus_123", "https://satduangdao.com/profile")
	if err != nil {
		t.Fatalf("CreatePortalSession() error = %v", err)
	}
	if url != "https://billing.stripe.com/p/session/bps_1" {
		t.Errorf("url = %q", url)
	}
}
