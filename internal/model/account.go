// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
	"time"
)

// ProviderLINE はLINEログインを表すプロバイダー名。
const ProviderLINE = "line"

// ExternalIdentity は外部IdPから取得したユーザー情報を表す。
// ログイン試行ごとに取得し、変更しない。
type ExternalIdentity struct {
	ProviderUserID string
	Name           string
	AvatarURL      string
	Provider       string
}

// AccountMetadata はログインのたびに外部プロフィールで上書きされるメタデータ。
// 部分マージは行わず、常に全体を置き換える。
type AccountMetadata struct {
	Name           string `json:"name"`
	FullName       string `json:"full_name"`
	AvatarURL      string `json:"avatar_url"`
	ExternalUserID string `json:"line_user_id"`
	Provider       string `json:"provider"`
}

// SubscriptionStatus はメンバーシップの状態を表す。
type SubscriptionStatus string

const (
	// SubscriptionStatusNone は未加入。
	SubscriptionStatusNone SubscriptionStatus = ""
	// SubscriptionStatusActive は加入中。
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusCanceled は解約済み。
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

// Account は内部アカウントディレクトリのアカウントを表す。
// 合成メールアドレスで一意に特定される。
type Account struct {
	ID                 string
	Email              string
	Metadata           AccountMetadata
	SubscriptionStatus SubscriptionStatus
	Credits            int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SyntheticEmail は外部IDから決定的に合成メールアドレスを生成する。
// 同じ外部IDからは常に同じアドレスが得られ、異なる外部IDが衝突することはない。
func SyntheticEmail(provider, externalUserID, domain string) string {
	return fmt.Sprintf("%s_%s@%s", strings.ToLower(provider), externalUserID, domain)
}

// MetadataFromIdentity は外部プロフィールからアカウントメタデータを構築する。
func MetadataFromIdentity(identity *ExternalIdentity) AccountMetadata {
	return AccountMetadata{
		Name:           identity.Name,
		FullName:       identity.Name,
		AvatarURL:      identity.AvatarURL,
		ExternalUserID: identity.ProviderUserID,
		Provider:       identity.Provider,
	}
}

// SignInTokenTypeMagicLink はマジックリンク形式のサインイントークン種別。
const SignInTokenTypeMagicLink = "magiclink"

// SignInToken は1回限り有効なサインイントークンを表す。
// 平文トークンは保存せず、SHA-256ダイジェストのみを永続化する。
type SignInToken struct {
	Digest     string
	AccountID  string
	Email      string
	Type       string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// SignInGrant はコールバック成功時にフロントエンドへ渡すトークン情報。
type SignInGrant struct {
	Token string
	Type  string
}

// Session はアカウントのログインセッションを表す。
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}
