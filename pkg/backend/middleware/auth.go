package middleware

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
)

// AuthConfig controls bearer-token authentication. The expected token
// comes from APIPassword, or from the environment variable named by
// APIKeyEnv when APIPassword is empty.
type AuthConfig struct {
	APIPassword string
	APIKeyEnv   string
	PublicPaths []string
}

// Auth rejects requests without the expected bearer token. Paths with a
// configured public prefix pass through. With no token configured at all,
// auth is a no-op.
func Auth(config AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, path := range config.PublicPaths {
				if strings.HasPrefix(r.URL.Path, path) {
					next.ServeHTTP(w, r)
					return
				}
			}

			expected := config.APIPassword
			if expected == "" && config.APIKeyEnv != "" {
				expected = os.Getenv(config.APIKeyEnv)
			}
			if expected == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": false,
					"error": map[string]string{
						"code":    "UNAUTHORIZED",
						"message": "Invalid or missing API key",
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
