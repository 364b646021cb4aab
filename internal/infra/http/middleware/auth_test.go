package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAPIKey(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name   string
		key    string
		header string
		value  string
		method string
		want   int
	}{
		{"no key presented", "s3cret", "", "", http.MethodPost, http.StatusUnauthorized},
		{"wrong key", "s3cret", APIKeyHeader, "guess", http.MethodPost, http.StatusUnauthorized},
		{"header key", "s3cret", APIKeyHeader, "s3cret", http.MethodPost, http.StatusOK},
		{"bearer token", "s3cret", "Authorization", "Bearer s3cret", http.MethodGet, http.StatusOK},
		{"basic auth is not a bearer", "s3cret", "Authorization", "Basic s3cret", http.MethodGet, http.StatusUnauthorized},
		{"unconfigured key rejects", "", APIKeyHeader, "", http.MethodGet, http.StatusUnauthorized},
		{"preflight passes", "s3cret", "", "", http.MethodOptions, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/chat", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()

			RequireAPIKey(tt.key)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
