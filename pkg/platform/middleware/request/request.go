// Package request provides request ID middleware. Every request gets a UUID
// that flows through logs, audit entries, and error responses.
package request

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"custos/pkg/requestcontext"
)

const headerRequestID = "X-Request-ID"

// Middleware assigns a request ID, honoring one supplied by a trusted
// upstream proxy, and echoes it back on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
