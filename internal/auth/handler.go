package auth

import (
	"errors"
	"net/http"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Validator TokenValidator
}

func NewHandler(baseHandler *transport.BaseHandler, validator TokenValidator) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Validator:   validator,
	}
}

// AuthMiddleware rejects requests without a valid bearer token and stores the identity in the context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, r, internal.ErrUnauthorized)
			return
		}

		claims, err := h.Validator.ValidateToken(token)
		if err != nil {
			h.WriteAppError(w, r, mapTokenError(err))
			return
		}

		userID := claims.Identity()
		ctx := internal.ContextWithUserID(r.Context(), userID)
		ctx = logger.With(ctx, "user_id", userID)

		logger.From(ctx).Debug("auth middleware: identity verified")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func mapTokenError(err error) *internal.AppError {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return internal.ErrTokenExpired
	case errors.Is(err, ErrMissingToken):
		return internal.ErrUnauthorized
	default:
		return internal.ErrInvalidToken.WithCause(err)
	}
}
