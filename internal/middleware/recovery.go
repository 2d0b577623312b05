package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// NewRecoveryMiddleware はpanicを500 JSONレスポンスに変換するミドルウェアを返す。
// http.ErrAbortHandlerは接続中断の合図なので再panicする。
// LINEコールバックは独自にpanicを捕捉してリダイレクトするため、ここに到達するのはJSON APIのみ。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				}
				if reqID := chimw.GetReqID(r.Context()); reqID != "" {
					attrs = append(attrs, slog.String("request_id", reqID))
				}
				slog.Error("panic recovered", attrs...)

				WriteInternalServerError(w, "internal server error")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
