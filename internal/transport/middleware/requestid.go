package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

const HeaderRequestID = "X-Request-ID"

// RequestID reuses a caller supplied id or mints one, and attaches it to the context logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		ctx := internal.ContextWithRequestID(r.Context(), requestID)
		ctx = logger.With(ctx, "request_id", requestID)

		w.Header().Set(HeaderRequestID, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
