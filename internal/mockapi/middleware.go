package mockapi

import (
	"net/http"
	"strings"
	"time"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// RequireBearer verifies the bearer token and injects its claims into the request context.
func RequireBearer(m *Manager, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(authorizationHeader))
			if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
				writeError(w, http.StatusUnauthorized, "Missing authorization header", "Unauthorized")
				return
			}
			tok := strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))

			claims, err := m.Verify(tok, now())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token", "Unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
