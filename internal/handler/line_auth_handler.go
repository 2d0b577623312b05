package handler

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/satduang/internal/auth"
	"github.com/hitoshi/satduang/internal/metrics"
	"github.com/hitoshi/satduang/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	// lineCallbackPath はサインイントークンを受け取るフロントエンドのパス。
	lineCallbackPath = "/auth/line-callback"
)

// login_error に載せるコード
const (
	loginErrorInvalidState  = "invalid_state"
	loginErrorTokenExchange = "token_exchange_failed"
	loginErrorProfileFetch  = "profile_fetch_failed"
	loginErrorSessionFailed = "session_failed"
	loginErrorUnexpected    = "unexpected_error"
)

const loginCancelledMessage = "LINE login cancelled"

// メトリクスのoutcomeラベル。失敗時はlogin_errorのコードを使う。
const (
	loginOutcomeSuccess   = "success"
	loginOutcomeCancelled = "cancelled"
)

// LineAuthServiceInterface はLINEログインハンドラーが必要とするサービスインターフェース。
type LineAuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.SignInGrant, error)
}

// LineAuthHandlerConfig はLINEログインハンドラーの設定。
type LineAuthHandlerConfig struct {
	SiteURL      string
	CookieSecure bool
}

// LineAuthHandler は GET /line-auth?action=login|callback を処理する。
// エラーはすべてフロントエンドへのリダイレクトで伝え、生のエラーボディは返さない。
type LineAuthHandler struct {
	service LineAuthServiceInterface
	config  LineAuthHandlerConfig
	metrics metrics.MetricsCollector
}

// NewLineAuthHandler はLineAuthHandlerを生成する。
func NewLineAuthHandler(service LineAuthServiceInterface, config LineAuthHandlerConfig, collector metrics.MetricsCollector) *LineAuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &LineAuthHandler{
		service: service,
		config:  config,
		metrics: collector,
	}
}

// ServeHTTP はactionクエリで処理を振り分ける。
func (h *LineAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "login":
		h.Login(w, r)
	case "callback":
		h.Callback(w, r)
	default:
		handleServiceError(w, model.NewInvalidActionError())
	}
}

// Login はLINEの認可画面へリダイレクトする。
func (h *LineAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.redirectLoginError(w, r, loginErrorUnexpected)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusFound)
}

// Callback はLINEからのコールバックを処理し、サインイントークン付きでフロントエンドへ戻す。
func (h *LineAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in line callback", slog.Any("panic", rec))
			h.redirectLoginError(w, r, loginErrorUnexpected)
		}
	}()

	// stateクッキーは結果に関係なく削除する
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	q := r.URL.Query()
	code := q.Get("code")
	if q.Get("error") != "" || code == "" {
		desc := q.Get("error_description")
		if desc == "" {
			desc = loginCancelledMessage
		}
		slog.Info("line login not completed",
			slog.String("error", q.Get("error")),
			slog.String("error_description", desc),
		)
		h.metrics.RecordLogin(loginOutcomeCancelled)
		h.redirectLoginError(w, r, desc)
		return
	}

	if !validState(r, q.Get("state")) {
		slog.Warn("oauth state mismatch")
		h.metrics.RecordLogin(loginErrorInvalidState)
		h.redirectLoginError(w, r, loginErrorInvalidState)
		return
	}

	grant, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		reason := loginErrorCode(err)
		slog.Error("line callback failed",
			slog.String("login_error", reason),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordLogin(reason)
		h.redirectLoginError(w, r, reason)
		return
	}

	h.metrics.RecordLogin(loginOutcomeSuccess)
	params := url.Values{}
	params.Set("token_hash", grant.Token)
	params.Set("type", grant.Type)
	http.Redirect(w, r, h.config.SiteURL+lineCallbackPath+"?"+params.Encode(), http.StatusFound)
}

// redirectLoginError はSITE_URL?login_error=<reason> へリダイレクトする。
func (h *LineAuthHandler) redirectLoginError(w http.ResponseWriter, r *http.Request, reason string) {
	params := url.Values{}
	params.Set("login_error", reason)
	http.Redirect(w, r, h.config.SiteURL+"?"+params.Encode(), http.StatusFound)
}

// validState はクエリのstateがCookieの値と一致するかを検証する。
func validState(r *http.Request, state string) bool {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) == 1
}

// loginErrorCode はサービスのエラーをlogin_errorコードに変換する。
func loginErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrTokenExchangeFailed):
		return loginErrorTokenExchange
	case errors.Is(err, auth.ErrProfileFetchFailed):
		return loginErrorProfileFetch
	case errors.Is(err, auth.ErrSessionFailed):
		return loginErrorSessionFailed
	default:
		return loginErrorUnexpected
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
