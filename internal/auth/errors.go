package auth

import "errors"

// コールバック処理の失敗段階。ハンドラーはこれらをlogin_errorコードに変換する。
var (
	// ErrTokenExchangeFailed は認可コードのトークン交換に失敗したことを表す。
	ErrTokenExchangeFailed = errors.New("token exchange failed")
	// ErrProfileFetchFailed はプロフィール取得に失敗したことを表す。
	ErrProfileFetchFailed = errors.New("profile fetch failed")
	// ErrSessionFailed はアカウントの解決またはサインイントークンの発行に失敗したことを表す。
	ErrSessionFailed = errors.New("session failed")
)
