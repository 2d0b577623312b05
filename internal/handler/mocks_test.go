package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/hitoshi/satduang/internal/billing"
	"github.com/hitoshi/satduang/internal/model"
)

// --- モック定義 ---

type mockLineAuthService struct {
	getLoginURLFn    func(state string) string
	handleCallbackFn func(ctx context.Context, code string) (*model.SignInGrant, error)
	callbackCalls    int
}

func (m *mockLineAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return "https://access.line.me/oauth2/v2.1/authorize?state=" + state
}

func (m *mockLineAuthService) HandleCallback(ctx context.Context, code string) (*model.SignInGrant, error) {
	m.callbackCalls++
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return &model.SignInGrant{Token: "tok123", Type: model.SignInTokenTypeMagicLink}, nil
}

type mockSessionService struct {
	redeemFn     func(ctx context.Context, token, tokenType string) (*model.Session, *model.Account, error)
	getAccountFn func(ctx context.Context, accountID string) (*model.Account, error)
	logoutFn     func(ctx context.Context, sessionID string) error
}

func (m *mockSessionService) RedeemSignInToken(ctx context.Context, token, tokenType string) (*model.Session, *model.Account, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, token, tokenType)
	}
	return nil, nil, model.NewInvalidSignInTokenError()
}

func (m *mockSessionService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(ctx, accountID)
	}
	return nil, model.NewAccountNotFoundError()
}

func (m *mockSessionService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

type mockCheckoutService struct {
	createCheckoutFn func(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutResult, error)
	requests         []billing.CheckoutRequest
}

func (m *mockCheckoutService) CreateCheckout(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutResult, error) {
	m.requests = append(m.requests, req)
	if m.createCheckoutFn != nil {
		return m.createCheckoutFn(ctx, req)
	}
	return &billing.CheckoutResult{
		SessionID: "cs_test_1",
		URL:       "https://checkout.stripe.com/c/pay/cs_test_1",
		Package:   model.PackageStarter.Package(),
	}, nil
}

type mockPortalService struct {
	createPortalFn func(ctx context.Context, email, origin string) (string, error)
}

func (m *mockPortalService) CreatePortal(ctx context.Context, email, origin string) (string, error) {
	if m.createPortalFn != nil {
		return m.createPortalFn(ctx, email, origin)
	}
	return "https://billing.stripe.com/p/session/test_1", nil
}

type mockFulfillmentService struct {
	handleEventFn func(ctx context.Context, payload []byte, signature string) (billing.FulfillmentOutcome, error)
}

func (m *mockFulfillmentService) HandleEvent(ctx context.Context, payload []byte, signature string) (billing.FulfillmentOutcome, error) {
	if m.handleEventFn != nil {
		return m.handleEventFn(ctx, payload, signature)
	}
	return billing.OutcomeIgnored, nil
}

type mockSessionFinder struct {
	sessions map[string]*model.Session
}

func (m *mockSessionFinder) FindByID(_ context.Context, id string) (*model.Session, error) {
	return m.sessions[id], nil
}

// --- ヘルパー ---

// decodeBody はレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

// findCookie は名前でレスポンスのCookieを探す。
func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// discardLogger はテスト出力を汚さないロガーを返す。
func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
