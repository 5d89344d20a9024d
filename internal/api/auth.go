package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/babylog/babylog/internal/api/respond"
)

// APIKeyMiddleware rejects requests whose x-api-key header does not match
// the configured key. An empty configured key disables the check (local
// development only).
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey != "" {
				got := r.Header.Get("x-api-key")
				if subtle.ConstantTimeCompare([]byte(got), []byte(apiKey)) != 1 {
					respond.WriteUnauthorized(w, "Unauthorized")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
