package payment

import (
	"context"
	"net/http"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/transport"
)

type CheckoutServiceAPI interface {
	CreateOrder(ctx context.Context, userID, productID string) (*CreatedOrder, error)
}

type VerificationServiceAPI interface {
	Verify(ctx context.Context, userID string, req VerifyPaymentRequest) (*VerifyPaymentResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Checkout     CheckoutServiceAPI
	Verification VerificationServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, checkout CheckoutServiceAPI, verification VerificationServiceAPI) *Handler {
	return &Handler{
		BaseHandler:  baseHandler,
		Checkout:     checkout,
		Verification: verification,
	}
}

// authorize requires a caller identity equal to the userId named in the body.
func authorize(ctx context.Context, userID string) error {
	identity := internal.UserIDFromContext(ctx)
	if identity == "" {
		return internal.ErrUnauthorized
	}
	if identity != userID {
		return internal.ErrForbidden
	}
	return nil
}

// CreateOrder handles POST /api/v1/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if internal.UserIDFromContext(r.Context()) == "" {
		h.WriteAppError(w, r, internal.ErrUnauthorized)
		return
	}

	var req CreateOrderRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := authorize(r.Context(), req.UserID); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	created, err := h.Checkout.CreateOrder(r.Context(), req.UserID, req.ProductID)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CreateOrderResponse{Order: created})
}

// VerifyPayment handles POST /api/v1/payments/verify
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if internal.UserIDFromContext(r.Context()) == "" {
		h.WriteAppError(w, r, internal.ErrUnauthorized)
		return
	}

	var req VerifyPaymentRequest
	if err := h.DecodeJSON(w, r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := authorize(r.Context(), req.UserID); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	resp, err := h.Verification.Verify(r.Context(), req.UserID, req)
	if err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
