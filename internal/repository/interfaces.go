// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/satduang/internal/model"
)

// AccountRepository はアカウントディレクトリの永続化インターフェース。
// アカウントは合成メールアドレスでのみ特定する。
type AccountRepository interface {
	// UpsertByEmail はメールアドレスをキーにアカウントを作成、または既存アカウントの
	// メタデータを丸ごと置き換える。新規作成した場合はcreatedにtrueを返す。
	// subscription_status と credits は変更しない。
	UpsertByEmail(ctx context.Context, email string, metadata model.AccountMetadata) (account *model.Account, created bool, err error)

	// FindByEmail はメールアドレスでアカウントを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Account, error)

	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Account, error)

	// SetSubscriptionStatus はメンバーシップ状態を更新する。
	SetSubscriptionStatus(ctx context.Context, id string, status model.SubscriptionStatus) error
}

// SignInTokenRepository は1回限りのサインイントークンの永続化インターフェース。
type SignInTokenRepository interface {
	// Create はトークンを保存する。
	Create(ctx context.Context, token *model.SignInToken) error

	// Consume は未使用かつ有効期限内のトークンを使用済みにして返す。
	// 単一の条件付きUPDATEで行うため、同じトークンを2回消費することはできない。
	// 消費できなかった場合はnilを返す。
	Consume(ctx context.Context, digest string) (*model.SignInToken, error)

	// DeleteStale は期限切れ、またはconsumedBeforeより前に使用済みになったトークンを削除し、件数を返す。
	DeleteStale(ctx context.Context, consumedBefore time.Time) (int64, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れのセッションを削除し、件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PricingSettingsRepository はメンバーシップ割引設定の読み取りインターフェース。
type PricingSettingsRepository interface {
	// Get は現在の割引設定を返す。
	Get(ctx context.Context) (*model.PricingSettings, error)
}

// TransactionRepository は入金記録の永続化インターフェース。
type TransactionRepository interface {
	// RecordCheckout は入金記録を作成し、同じDBトランザクション内でクレジット加算または
	// メンバーシップ有効化を反映する。セッションが記録済みの場合はfalseを返す。
	RecordCheckout(ctx context.Context, txn *model.Transaction, kind model.PackageKind) (bool, error)
}
