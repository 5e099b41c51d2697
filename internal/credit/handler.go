package credit

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/transport"
)

type ServiceAPI interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Consume(ctx context.Context, userID string, amount int64) (int64, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrUnauthorized)
		return
	}

	balance, err := h.Service.Balance(r.Context(), userID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, BalanceResponse{Credits: balance})
}

func (h *Handler) ConsumeCredits(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteAppError(w, r, internal.ErrUnauthorized)
		return
	}

	var req ConsumeRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	remaining, err := h.Service.Consume(r.Context(), userID, req.Amount)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ConsumeResponse{Success: true, Credits: remaining})
}
