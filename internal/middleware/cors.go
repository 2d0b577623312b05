package middleware

import "net/http"

// corsAllowedHeaders はブラウザクライアントが送るリクエストヘッダー。
const corsAllowedHeaders = "authorization, x-client-info, apikey, content-type"

// NewCORSMiddleware は指定されたオリジンに対するCORSミドルウェアを返す。
// OPTIONSプリフライトリクエストにはルーティングやボディ解析より前に200 "ok"で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if allowedOrigin != "*" {
				// ワイルドカードとcredentialsは併用できない
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Content-Type", "text/plain; charset=utf-8")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
