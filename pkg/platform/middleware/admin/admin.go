package admin

import (
	"log/slog"
	"net/http"

	request "custos/pkg/platform/middleware/request"
	"custos/pkg/platform/secrets"
)

// RequireAdminToken gates detection and audit-query endpoints. The expected
// token is configured as a bcrypt hash only; the plaintext never touches
// config or logs. Mint a token pair with cmd/admintoken.
func RequireAdminToken(expectedTokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if token == "" || secrets.Verify(token, expectedTokenHash) != nil {
				ctx := r.Context()
				requestID := request.GetRequestID(ctx)
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
