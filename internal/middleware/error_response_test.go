package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/satduang/internal/model"
)

// TestWriteErrorResponse_WritesUnifiedFormat は統一エラーフォーマットでレスポンスが書き込まれることを検証する。
func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("Missing packageId or userId"))

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	if body.Error != "Missing packageId or userId" {
		t.Errorf("error = %q", body.Error)
	}
	if body.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidRequest)
	}
}

// TestWriteErrorResponse_LocalizedMessageVerbatim はローカライズ済みメッセージが変換されないことを検証する。
func TestWriteErrorResponse_LocalizedMessageVerbatim(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, model.NewCustomerNotFoundError())

	var raw map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if raw["error"] != "ไม่พบข้อมูลลูกค้าใน Stripe กรุณาติดต่อเจ้าหน้าที่" {
		t.Errorf("error = %q", raw["error"])
	}
	if raw["code"] != model.ErrCodeCustomerNotFound {
		t.Errorf("code = %q", raw["code"])
	}
}

func TestWriteInternalServerError_UsesGivenMessage(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w, "connection refused")

	resp := w.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Error != "connection refused" {
		t.Errorf("error = %q, want %q", body.Error, "connection refused")
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want %q", body.Code, "INTERNAL_ERROR")
	}
}
