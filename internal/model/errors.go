package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// レスポンスボディの "error" には Message がそのまま入る。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, billing, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidPackage      = "INVALID_PACKAGE"
	ErrCodeCustomerNotFound    = "CUSTOMER_NOT_FOUND"
	ErrCodeProviderError       = "PROVIDER_ERROR"
	ErrCodeInvalidSignInToken  = "INVALID_SIGN_IN_TOKEN"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	ErrCodeInvalidAction       = "INVALID_ACTION"
	ErrCodeInvalidSignature    = "INVALID_SIGNATURE"
	ErrCodeMissingMetadata     = "MISSING_METADATA"
	ErrCodeWebhookUnconfigured = "WEBHOOK_UNCONFIGURED"
)

// NewInvalidRequestError は必須項目の欠落や不正な入力に対するエラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
	}
}

// NewInvalidPackageError は未知のパッケージIDに対するエラーを生成する。
func NewInvalidPackageError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPackage,
		Message:  "Invalid package",
		Category: "validation",
	}
}

// NewCustomerNotFoundError は決済プロバイダーに顧客が存在しない場合のエラーを生成する。
func NewCustomerNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCustomerNotFound,
		Message:  "ไม่พบข้อมูลลูกค้าใน Stripe กรุณาติดต่อเจ้าหน้าที่",
		Category: "billing",
	}
}

// NewProviderError は決済プロバイダーが拒否したリクエストのエラーを生成する。
// メッセージはプロバイダーのものをそのまま使う。
func NewProviderError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderError,
		Message:  message,
		Category: "billing",
	}
}

// NewInvalidSignInTokenError は無効・期限切れ・使用済みのサインイントークンに対するエラーを生成する。
func NewInvalidSignInTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignInToken,
		Message:  "invalid or expired sign-in token",
		Category: "auth",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "unauthorized",
		Category: "auth",
	}
}

// NewAccountNotFoundError はアカウントが見つからない場合のエラーを生成する。
func NewAccountNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  "account not found",
		Category: "auth",
	}
}

// NewInvalidActionError はline-authの未知のactionに対するエラーを生成する。
func NewInvalidActionError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAction,
		Message:  "Invalid action",
		Category: "validation",
	}
}

// NewMissingMetadataError はWebhookのセッションメタデータが不足している場合のエラーを生成する。
func NewMissingMetadataError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingMetadata,
		Message:  "Missing metadata",
		Category: "billing",
	}
}

// NewInvalidSignatureError はWebhook署名の検証失敗エラーを生成する。
func NewInvalidSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "Invalid signature",
		Category: "billing",
	}
}

// NewMissingSignatureError はStripe-Signatureヘッダーが無いWebhookリクエストのエラーを生成する。
func NewMissingSignatureError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  "Missing stripe-signature header",
		Category: "billing",
	}
}

// NewWebhookUnconfiguredError はWebhook署名シークレットが未設定の場合のエラーを生成する。
func NewWebhookUnconfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeWebhookUnconfigured,
		Message:  "webhook secret is not configured",
		Category: "system",
	}
}
