package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// LINE Login
	LineChannelID     string `env:"LINE_CHANNEL_ID,required,notEmpty"`
	LineChannelSecret string `env:"LINE_CHANNEL_SECRET,required,notEmpty"`
	LineCallbackURL   string `env:"LINE_CALLBACK_URL,required,notEmpty"`

	// Stripe
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required,notEmpty"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// フロントエンド
	SiteURL     string `env:"SITE_URL,required,notEmpty"`
	EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"satduangdao.com"`

	// Sign-in token / Session
	SignInTokenTTL time.Duration `env:"SIGN_IN_TOKEN_TTL" envDefault:"10m"`
	SessionMaxAge  int           `env:"SESSION_MAX_AGE" envDefault:"86400"`

	// Rate Limit（req/min/IP）
	RateLimitGeneral  int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitCheckout int `env:"RATE_LIMIT_CHECKOUT" envDefault:"10"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.LineCallbackURL, "https://")

	return cfg, nil
}
