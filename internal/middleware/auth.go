package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"gateway/internal/domain"
)

// Auth enforces bearer API key authentication. Key comparison is constant
// time so response timing never narrows down a valid key.
func Auth(apiKeys []string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, []byte(k))
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeAuthError(w, r, "API key required")
				return
			}
			presented := []byte(strings.TrimPrefix(header, "Bearer "))
			for _, key := range keys {
				if len(presented) == len(key) && subtle.ConstantTimeCompare(presented, key) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeAuthError(w, r, "Invalid API key")
		})
	}
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	writeErrorEnvelope(w, r, http.StatusUnauthorized, domain.CodeAuthentication, message)
}
