// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/satduang/internal/middleware"
	"github.com/hitoshi/satduang/internal/model"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIError以外はメッセージをそのまま500で返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	slog.Error("unexpected error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w, err.Error())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeCustomerNotFound, model.ErrCodeAccountNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidSignInToken, model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeWebhookUnconfigured:
		return http.StatusInternalServerError
	default:
		// INVALID_REQUEST, INVALID_PACKAGE, PROVIDER_ERROR, INVALID_ACTION,
		// INVALID_SIGNATURE, MISSING_METADATA
		return http.StatusBadRequest
	}
}

// decodeJSON はリクエストボディをデコードする。失敗した場合は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Invalid JSON body"))
		return false
	}
	return true
}

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 16
