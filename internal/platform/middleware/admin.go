package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"legitid/pkg/requestcontext"
)

// RequireAdminToken gates the admin surface behind a shared X-Admin-Token
// header. With no token configured, the admin surface is disabled entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedToken == "" {
				writeJSONError(w, http.StatusNotFound, "not_found", "admin surface is disabled")
				return
			}
			token := r.Header.Get("X-Admin-Token")
			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "admin token required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
