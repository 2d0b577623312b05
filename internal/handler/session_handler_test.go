package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/satduang/internal/middleware"
	"github.com/hitoshi/satduang/internal/model"
)

var testSessionConfig = SessionHandlerConfig{
	CookieSecure:  true,
	SessionMaxAge: 86400,
}

func testAccount() *model.Account {
	return &model.Account{
		ID:    "account-1",
		Email: "line_U123@satduangdao.com",
		Metadata: model.AccountMetadata{
			Name:      "Somchai",
			AvatarURL: "https://profile.line-scdn.net/abc",
		},
		SubscriptionStatus: model.SubscriptionStatusActive,
		Credits:            15,
	}
}

func TestSessionHandler_Verify_IssuesSession(t *testing.T) {
	expiresAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &mockSessionService{
		redeemFn: func(ctx context.Context, token, tokenType string) (*model.Session, *model.Account, error) {
			if token != "abc123" || tokenType != "magiclink" {
				t.Errorf("token = %q, type = %q", token, tokenType)
			}
			return &model.Session{ID: "session-1", AccountID: "account-1", ExpiresAt: expiresAt}, testAccount(), nil
		},
	}
	h := NewSessionHandler(svc, testSessionConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{"token_hash":"abc123","type":"magiclink"}`))
	w := httptest.NewRecorder()
	h.Verify(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cookie := findCookie(resp, middleware.SessionCookieName)
	if cookie == nil || cookie.Value != "session-1" {
		t.Fatalf("session cookie = %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.MaxAge != 86400 {
		t.Errorf("cookie attributes = %+v", cookie)
	}

	body := decodeBody(t, resp)
	if body["access_token"] != "session-1" {
		t.Errorf("access_token = %v", body["access_token"])
	}
	if body["expires_at"] != "2026-01-02T03:04:05Z" {
		t.Errorf("expires_at = %v", body["expires_at"])
	}
	account, ok := body["account"].(map[string]any)
	if !ok {
		t.Fatalf("account = %v", body["account"])
	}
	want := map[string]any{
		"id":                  "account-1",
		"email":               "line_U123@satduangdao.com",
		"name":                "Somchai",
		"avatar_url":          "https://profile.line-scdn.net/abc",
		"subscription_status": "active",
		"credits":             float64(15),
	}
	for k, v := range want {
		if account[k] != v {
			t.Errorf("account.%s = %v, want %v", k, account[k], v)
		}
	}
}

func TestSessionHandler_Verify_InvalidToken_Returns401(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{}, testSessionConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{"token_hash":"used","type":"magiclink"}`))
	w := httptest.NewRecorder()
	h.Verify(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if body := decodeBody(t, resp); body["error"] != "invalid or expired sign-in token" {
		t.Errorf("error = %v", body["error"])
	}
	if findCookie(resp, middleware.SessionCookieName) != nil {
		t.Error("no session cookie should be set")
	}
}

func TestSessionHandler_Verify_InvalidJSON_Returns400(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{}, testSessionConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/verify", strings.NewReader(`{token_hash`))
	w := httptest.NewRecorder()
	h.Verify(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSessionHandler_Me_ReturnsAccount(t *testing.T) {
	svc := &mockSessionService{
		getAccountFn: func(ctx context.Context, accountID string) (*model.Account, error) {
			if accountID != "account-1" {
				t.Errorf("accountID = %q", accountID)
			}
			return testAccount(), nil
		},
	}
	h := NewSessionHandler(svc, testSessionConfig)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), "account-1", "session-1"))
	w := httptest.NewRecorder()
	h.Me(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body := decodeBody(t, resp)
	if body["email"] != "line_U123@satduangdao.com" || body["credits"] != float64(15) {
		t.Errorf("body = %v", body)
	}
}

func TestSessionHandler_Me_NoSessionContext_Returns401(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{}, testSessionConfig)

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestSessionHandler_Logout_DeletesSessionAndClearsCookie(t *testing.T) {
	var deleted string
	svc := &mockSessionService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			deleted = sessionID
			return nil
		},
	}
	h := NewSessionHandler(svc, testSessionConfig)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer session-9")
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	if deleted != "session-9" {
		t.Errorf("deleted session = %q, want %q", deleted, "session-9")
	}
	cookie := findCookie(resp, middleware.SessionCookieName)
	if cookie == nil || cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Errorf("session cookie should be cleared, got %+v", cookie)
	}
}

func TestSessionHandler_Logout_WithoutSession_Returns204(t *testing.T) {
	called := false
	svc := &mockSessionService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			called = true
			return nil
		},
	}
	h := NewSessionHandler(svc, testSessionConfig)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("Logout should not be called without a session token")
	}
}
