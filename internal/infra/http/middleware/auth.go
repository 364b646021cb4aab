package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
)

const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests that do not carry the configured key in
// X-API-Key or as an "Authorization: Bearer" token. An empty key rejects
// everything.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Preflight carries no credentials.
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			presented := r.Header.Get(APIKeyHeader)
			if presented == "" {
				if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
					presented = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
				}
			}

			if key == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				log.Printf("🚫 API: unauthorized %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"UNAUTHORIZED","message":"missing or invalid API key"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
