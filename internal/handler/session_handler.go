package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/satduang/internal/middleware"
	"github.com/hitoshi/satduang/internal/model"
)

// SessionServiceInterface はサインイントークンの引き換えとセッション管理に必要なサービスインターフェース。
type SessionServiceInterface interface {
	RedeemSignInToken(ctx context.Context, token, tokenType string) (*model.Session, *model.Account, error)
	GetAccount(ctx context.Context, accountID string) (*model.Account, error)
	Logout(ctx context.Context, sessionID string) error
}

// SessionHandlerConfig はセッションCookieの設定。
type SessionHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// SessionHandler は /auth/verify, /auth/me, /auth/logout を処理する。
type SessionHandler struct {
	service SessionServiceInterface
	config  SessionHandlerConfig
}

// NewSessionHandler はSessionHandlerを生成する。
func NewSessionHandler(service SessionServiceInterface, config SessionHandlerConfig) *SessionHandler {
	return &SessionHandler{
		service: service,
		config:  config,
	}
}

type verifyRequest struct {
	TokenHash string `json:"token_hash"`
	Type      string `json:"type"`
}

type accountResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	Name               string `json:"name"`
	AvatarURL          string `json:"avatar_url"`
	SubscriptionStatus string `json:"subscription_status"`
	Credits            int    `json:"credits"`
}

type verifyResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     accountResponse `json:"account"`
}

// Verify はサインイントークンを引き換えてセッションを発行する。
// POST /auth/verify
func (h *SessionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, account, err := h.service.RedeemSignInToken(r.Context(), req.TokenHash, req.Type)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, verifyResponse{
		AccessToken: session.ID,
		ExpiresAt:   session.ExpiresAt.UTC(),
		Account:     toAccountResponse(account),
	})
}

// Me は現在のアカウント情報を返す。セッションミドルウェアの後に配置する。
// GET /auth/me
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, err := middleware.AccountIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewUnauthorizedError())
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// Logout はセッションを破棄する。セッションが無くても204を返す。
// POST /auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionTokenFromRequest(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			// ログアウト失敗してもCookieはクリアする
			slog.Error("failed to logout", slog.String("error", err.Error()))
		}
	}

	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func toAccountResponse(account *model.Account) accountResponse {
	return accountResponse{
		ID:                 account.ID,
		Email:              account.Email,
		Name:               account.Metadata.Name,
		AvatarURL:          account.Metadata.AvatarURL,
		SubscriptionStatus: string(account.SubscriptionStatus),
		Credits:            account.Credits,
	}
}
