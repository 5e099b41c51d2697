package payment

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/frahmantamala/credit-payments/internal"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/transport"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

const (
	HeaderWebhookSignature = "X-Razorpay-Signature"
	HeaderWebhookEventID   = "X-Razorpay-Event-Id"
)

type WebhookProcessorAPI interface {
	Process(ctx context.Context, eventID string, body []byte) (*WebhookResult, error)
}

type WebhookHandler struct {
	*transport.BaseHandler
	processor     WebhookProcessorAPI
	webhookSecret string
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, processor WebhookProcessorAPI, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   baseHandler,
		processor:     processor,
		webhookSecret: webhookSecret,
	}
}

// HandleWebhook handles POST /api/v1/payments/webhook. The signature covers the
// raw bytes, so the body is read once and never re-encoded.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	lg := logger.FromOr(r.Context(), h.Logger)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, transport.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.WriteError(w, http.StatusRequestEntityTooLarge, "webhook body too large")
			return
		}
		h.WriteError(w, http.StatusBadRequest, "failed to read webhook body")
		return
	}

	if !VerifyWebhookSignature(h.webhookSecret, body, r.Header.Get(HeaderWebhookSignature)) {
		lg.Warn("webhook signature mismatch", "remote_addr", r.RemoteAddr)
		observability.RecordWebhookEvent("unknown", "invalid_signature")
		h.WriteError(w, http.StatusBadRequest, internal.ErrInvalidSignature.Message)
		return
	}

	eventID := EventID(r.Header.Get(HeaderWebhookEventID), body)

	result, err := h.processor.Process(r.Context(), eventID, body)
	if err != nil {
		appErr, ok := internal.IsAppError(err)
		if ok && appErr.StatusCode < http.StatusInternalServerError {
			lg.Warn("webhook rejected", "event_id", eventID, "error", err)
			h.WriteError(w, appErr.StatusCode, appErr.Message)
			return
		}
		lg.Error("webhook processing failed", "event_id", eventID, "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	lg.Info("webhook processed",
		"event_id", result.EventID,
		"event", result.EventType,
		"duplicate", result.Duplicate,
		"ignored", result.Ignored)

	h.WriteJSON(w, http.StatusOK, WebhookResponse{Success: true})
}
