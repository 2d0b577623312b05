package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/satduang/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// フロントエンドはerrorをそのまま表示する。
type ErrorResponseBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Error: apiErr.Message,
		Code:  apiErr.Code,
	})
}

// WriteInternalServerError は想定外エラーの500レスポンスを書き込む。
// メッセージは呼び出し側が決める。
func WriteInternalServerError(w http.ResponseWriter, message string) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  message,
		Category: "system",
	})
}
