package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/hitoshi/satduang/internal/model"
)

const (
	defaultLineAuthURL    = "https://access.line.me/oauth2/v2.1/authorize"
	defaultLineTokenURL   = "https://api.line.me/oauth2/v2.1/token"
	defaultLineProfileURL = "https://api.line.me/v2/profile"
)

// LineOAuthConfig はLINEログインの設定。
type LineOAuthConfig struct {
	ChannelID     string
	ChannelSecret string
	RedirectURL   string

	// テスト用にオーバーライド可能なURLとHTTPクライアント
	AuthURL    string
	TokenURL   string
	ProfileURL string
	HTTPClient *http.Client
}

// LineOAuthProvider はLINEログイン（OAuth 2.0 v2.1）による認証を提供する。
type LineOAuthProvider struct {
	oauth      *oauth2.Config
	profileURL string
	httpClient *http.Client
}

// NewLineOAuthProvider はLineOAuthProviderを生成する。
func NewLineOAuthProvider(config LineOAuthConfig) *LineOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultLineAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultLineTokenURL
	}
	if config.ProfileURL == "" {
		config.ProfileURL = defaultLineProfileURL
	}

	return &LineOAuthProvider{
		oauth: &oauth2.Config{
			ClientID:     config.ChannelID,
			ClientSecret: config.ChannelSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"profile", "openid", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.AuthURL,
				TokenURL: config.TokenURL,
				// LINEはクライアント認証情報をリクエストボディで受け取る
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: config.ProfileURL,
		httpClient: config.HTTPClient,
	}
}

// GetLoginURL はLINEの認可URLを生成する。
func (p *LineOAuthProvider) GetLoginURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// lineProfile はLINEプロフィールエンドポイントのレスポンス。
type lineProfile struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	PictureURL  string `json:"pictureUrl"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、プロフィールを取得する。
// 失敗した段階に応じてErrTokenExchangeFailedまたはErrProfileFetchFailedをラップして返す。
func (p *LineOAuthProvider) ExchangeCode(ctx context.Context, code string) (*model.ExternalIdentity, error) {
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	// 1. 認可コードをアクセストークンに交換
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}

	// 2. アクセストークンでプロフィールを取得
	profile, err := p.fetchProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileFetchFailed, err)
	}

	return &model.ExternalIdentity{
		ProviderUserID: profile.UserID,
		Name:           profile.DisplayName,
		AvatarURL:      profile.PictureURL,
		Provider:       model.ProviderLINE,
	}, nil
}

// fetchProfile はBearerトークン付きでLINEのプロフィールを取得する。
func (p *LineOAuthProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*lineProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}

	resp, err := p.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d: %s", resp.StatusCode, string(body))
	}

	var profile lineProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}

	if profile.UserID == "" {
		return nil, fmt.Errorf("empty userId in profile response")
	}

	return &profile, nil
}

// compile-time interface check
var _ OAuthProvider = (*LineOAuthProvider)(nil)
