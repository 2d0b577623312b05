// Package auth はLINEログインによるアカウント連携、サインイントークン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/satduang/internal/model"
	"github.com/hitoshi/satduang/internal/repository"
)

// OAuthProvider は外部IdPのインターフェース。
type OAuthProvider interface {
	// GetLoginURL は認可URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、外部プロフィールを取得する。
	ExchangeCode(ctx context.Context, code string) (*model.ExternalIdentity, error)
}

// IdentitySanitizer は外部プロフィールを保存前に無害化する。
type IdentitySanitizer interface {
	Identity(identity *model.ExternalIdentity) *model.ExternalIdentity
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	EmailDomain    string        // 合成メールアドレスのドメイン
	SignInTokenTTL time.Duration // サインイントークンの有効期間
	SessionMaxAge  int           // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth       OAuthProvider
	accountRepo repository.AccountRepository
	tokenRepo   repository.SignInTokenRepository
	sessionRepo repository.SessionRepository
	sanitizer   IdentitySanitizer
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。sanitizerがnilの場合はプロフィールをそのまま保存する。
func NewService(
	oauth OAuthProvider,
	accountRepo repository.AccountRepository,
	tokenRepo repository.SignInTokenRepository,
	sessionRepo repository.SessionRepository,
	sanitizer IdentitySanitizer,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		accountRepo: accountRepo,
		tokenRepo:   tokenRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		config:      config,
		now:         time.Now,
	}
}

// GetLoginURL は認可URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback は認可コードから外部プロフィールを取得してアカウントと照合し、
// 1回限りのサインイントークンを発行する。
// アカウントは合成メールアドレスをキーにupsertされ、メタデータは毎回丸ごと置き換わる。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.SignInGrant, error) {
	// 1. 認可コードをトークンに交換し、プロフィールを取得
	identity, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.sanitizer != nil {
		identity = s.sanitizer.Identity(identity)
	}

	// 2. アカウントを照合
	email := model.SyntheticEmail(identity.Provider, identity.ProviderUserID, s.config.EmailDomain)
	account, err := s.reconcileAccount(ctx, email, model.MetadataFromIdentity(identity))
	if err != nil {
		return nil, err
	}

	// 3. サインイントークンを発行
	grant, err := s.mintSignInToken(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}

	return grant, nil
}

// reconcileAccount はアカウントを作成または更新する。
// upsertに失敗した場合はメタデータを更新せずに既存アカウントで続行する。
func (s *Service) reconcileAccount(ctx context.Context, email string, metadata model.AccountMetadata) (*model.Account, error) {
	account, created, err := s.accountRepo.UpsertByEmail(ctx, email, metadata)
	if err == nil {
		if created {
			slog.Info("new account created",
				slog.String("account_id", account.ID),
				slog.String("provider", metadata.Provider),
			)
		} else {
			slog.Info("existing account logged in",
				slog.String("account_id", account.ID),
				slog.String("provider", metadata.Provider),
			)
		}
		return account, nil
	}

	slog.Warn("account upsert failed, falling back to lookup",
		slog.String("error", err.Error()),
	)

	account, lookupErr := s.accountRepo.FindByEmail(ctx, email)
	if lookupErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFailed, lookupErr)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}
	return account, nil
}

// mintSignInToken はアカウント用の1回限りのトークンを生成し、ダイジェストのみを保存する。
func (s *Service) mintSignInToken(ctx context.Context, account *model.Account) (*model.SignInGrant, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate sign-in token: %w", err)
	}

	now := s.now()
	record := &model.SignInToken{
		Digest:    digestToken(token),
		AccountID: account.ID,
		Email:     account.Email,
		Type:      model.SignInTokenTypeMagicLink,
		ExpiresAt: now.Add(s.config.SignInTokenTTL),
		CreatedAt: now,
	}
	if err := s.tokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save sign-in token: %w", err)
	}

	return &model.SignInGrant{Token: token, Type: model.SignInTokenTypeMagicLink}, nil
}

// RedeemSignInToken はサインイントークンを消費してセッションを発行する。
// 無効・期限切れ・使用済みのトークンはINVALID_SIGN_IN_TOKENエラーになる。
func (s *Service) RedeemSignInToken(ctx context.Context, token, tokenType string) (*model.Session, *model.Account, error) {
	if token == "" || tokenType != model.SignInTokenTypeMagicLink {
		return nil, nil, model.NewInvalidSignInTokenError()
	}

	consumed, err := s.tokenRepo.Consume(ctx, digestToken(token))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to consume sign-in token: %w", err)
	}
	if consumed == nil {
		return nil, nil, model.NewInvalidSignInTokenError()
	}

	account, err := s.accountRepo.FindByID(ctx, consumed.AccountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, nil, model.NewAccountNotFoundError()
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("sign-in token redeemed", slog.String("account_id", account.ID))
	return session, account, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("account logged out")
	return nil
}

// GetAccount は指定IDのアカウントを取得する。
func (s *Service) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	account, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, model.NewAccountNotFoundError()
	}
	return account, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, accountID string) (*model.Session, error) {
	sessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateToken は暗号的に安全な32バイトのランダム値を16進文字列で返す。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// digestToken は保存用のSHA-256ダイジェストを返す。
func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
