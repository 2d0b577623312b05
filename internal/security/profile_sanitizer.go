// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizer は外部IdPから受け取ったプロフィール情報を、
// アカウントメタデータとして保存する前に無害化する。
// 表示名はbluemondayのStrictPolicyで全タグを除去したプレーンテキストにし、
// アバターURLはhttpsスキームの絶対URLのみを残す。
package security

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/satduang/internal/model"
)

// maxDisplayNameRunes は保存する表示名の最大文字数。
const maxDisplayNameRunes = 100

// ProfileSanitizer はbluemondayのポリシーを保持し、スレッドセーフに無害化を行う。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// DisplayName はタグを除去した表示名を返す。
// StrictPolicyはエンティティをエスケープして返すため、プレーンテキストに戻してから切り詰める。
func (s *ProfileSanitizer) DisplayName(raw string) string {
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.TrimSpace(text)

	if utf8.RuneCountInString(text) > maxDisplayNameRunes {
		runes := []rune(text)
		text = string(runes[:maxDisplayNameRunes])
	}
	return text
}

// AvatarURL はhttpsの絶対URLであればそのまま返し、それ以外は空文字列を返す。
func (s *ProfileSanitizer) AvatarURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return ""
	}
	return u.String()
}

// Identity は外部プロフィールの表示用フィールドを無害化したコピーを返す。
// ProviderUserIDとProviderは変更しない。
func (s *ProfileSanitizer) Identity(identity *model.ExternalIdentity) *model.ExternalIdentity {
	return &model.ExternalIdentity{
		ProviderUserID: identity.ProviderUserID,
		Name:           s.DisplayName(identity.Name),
		AvatarURL:      s.AvatarURL(identity.AvatarURL),
		Provider:       identity.Provider,
	}
}
