package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"cardvault-api/pkg/apierror"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	APIKeys   []string
	AdminKeys []string
}

// Enabled reports whether any key is configured.
func (c AuthConfig) Enabled() bool {
	return len(c.APIKeys) > 0 || len(c.AdminKeys) > 0
}

// NewAuthMiddleware accepts requests carrying an API key or an admin key.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	keys := append(append([]string{}, cfg.APIKeys...), cfg.AdminKeys...)
	return requireKey(keys, "Authentication required. Use the X-API-Key header.")
}

// NewAdminMiddleware accepts only admin keys.
func NewAdminMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return requireKey(cfg.AdminKeys, "Admin key required.")
}

func requireKey(validKeys []string, missing string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := extractKey(r)
			if apiKey == "" {
				writeError(w, apierror.Unauthorized(missing))
				return
			}
			if !isValidKey(apiKey, validKeys) {
				writeError(w, apierror.Forbidden("Invalid API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// writeError writes an API error response.
func writeError(w http.ResponseWriter, err *apierror.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_, _ = w.Write(err.ToJSON())
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if valid != "" && subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
