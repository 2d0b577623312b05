package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/satduang/internal/metrics"
	"github.com/hitoshi/satduang/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// 運用
	DB             Pinger
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// LINEログイン
	LineAuthService LineAuthServiceInterface
	LineAuthConfig  LineAuthHandlerConfig

	// サインイントークン・セッション
	SessionService SessionServiceInterface
	SessionConfig  SessionHandlerConfig

	// 決済
	CheckoutService    CheckoutServiceInterface
	PortalService      PortalServiceInterface
	FulfillmentService FulfillmentServiceInterface
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → RequestID → RealIP → Logging → Recovery → SecurityHeaders → RateLimit(General)
//
// CORSを最上位に置き、OPTIONSはルーティング前に応答する。
// Webhookとヘルスチェックはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())

	lineAuthHandler := NewLineAuthHandler(deps.LineAuthService, deps.LineAuthConfig, deps.Metrics)
	sessionHandler := NewSessionHandler(deps.SessionService, deps.SessionConfig)
	billingHandler := NewBillingHandler(deps.CheckoutService, deps.PortalService, deps.Metrics)
	webhookHandler := NewWebhookHandler(deps.FulfillmentService, deps.Metrics)

	// --- レート制限なし ---
	r.Get("/health", HealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/stripe-webhook", webhookHandler.ServeHTTP)

	// --- クライアント向け（IP単位のレート制限） ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/line-auth", lineAuthHandler.ServeHTTP)

		// 決済プロバイダーを呼び出すルートには専用のレート制限を追加
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.CheckoutMiddleware())
			r.Post("/create-checkout", billingHandler.CreateCheckout)
			r.Post("/create-portal", billingHandler.CreatePortal)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/verify", sessionHandler.Verify)
			r.Post("/logout", sessionHandler.Logout)
			r.With(middleware.NewSessionMiddleware(deps.SessionFinder)).Get("/me", sessionHandler.Me)
		})
	})

	return r
}
