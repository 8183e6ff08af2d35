package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/JonMunkholm/nexus-import/internal/config"
	"github.com/JonMunkholm/nexus-import/internal/logging"
)

// APIKeyHeader carries the client's key.
const APIKeyHeader = "X-API-Key"

// authError matches the web package's error body.
type authError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// APIKeyAuth returns middleware that validates the X-API-Key header against
// the configured keys. When RequireAPIKey is false all requests pass through.
func APIKeyAuth(cfg config.SecurityConfig) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		keys = append(keys, []byte(k))
	}

	return func(next http.Handler) http.Handler {
		if !cfg.RequireAPIKey {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logging.FromContext(r.Context())

			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				log.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, authError{
					Error:   "missing API key",
					Message: "An API key is required",
					Action:  "Send the key in the " + APIKeyHeader + " header",
					Code:    "AUTH001",
				})
				return
			}

			if !isValidAPIKey([]byte(key), keys) {
				log.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, authError{
					Error:   "invalid API key",
					Message: "The API key was not accepted",
					Code:    "AUTH002",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidAPIKey compares against every key in constant time.
func isValidAPIKey(key []byte, valid [][]byte) bool {
	ok := 0
	for _, v := range valid {
		ok |= subtle.ConstantTimeCompare(key, v)
	}
	return ok == 1
}

func writeAuthError(w http.ResponseWriter, status int, body authError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
