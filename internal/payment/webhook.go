package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frahmantamala/credit-payments/internal"
	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/order"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

const (
	WebhookEventPaymentCaptured = "payment.captured"
	WebhookEventOrderPaid       = "order.paid"
	WebhookEventPaymentFailed   = "payment.failed"
)

// WebhookEvent is the envelope of every gateway notification.
type WebhookEvent struct {
	Entity    string `json:"entity"`
	AccountID string `json:"account_id"`
	Event     string `json:"event"`
	Payload   struct {
		Payment *struct {
			Entity gatewaytypes.Payment `json:"entity"`
		} `json:"payment,omitempty"`
		Order *struct {
			Entity gatewaytypes.Order `json:"entity"`
		} `json:"order,omitempty"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

func (e *WebhookEvent) payment() *gatewaytypes.Payment {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}

func (e *WebhookEvent) paymentID() string {
	if p := e.payment(); p != nil {
		return p.ID
	}
	return ""
}

// orderID picks the order reference for the event type.
func (e *WebhookEvent) orderID() string {
	switch e.Event {
	case WebhookEventOrderPaid:
		if e.Payload.Order != nil {
			return e.Payload.Order.Entity.ID
		}
	default:
		if p := e.payment(); p != nil {
			return p.OrderID
		}
	}
	return ""
}

// EventID falls back to a digest of the body when the gateway omits the header.
func EventID(header string, body []byte) string {
	if header != "" {
		return header
	}
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}

type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
}

type WebhookProcessor struct {
	orders    order.RepositoryAPI
	completer CompleterAPI
	events    WebhookEventRepository
	publisher Publisher
	logger    *slog.Logger
}

func NewWebhookProcessor(orders order.RepositoryAPI, completer CompleterAPI, eventRepo WebhookEventRepository, publisher Publisher, logger *slog.Logger) *WebhookProcessor {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &WebhookProcessor{
		orders:    orders,
		completer: completer,
		events:    eventRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Process applies an authenticated webhook body. The event id is recorded only
// after the event was fully applied, so a failure here makes the gateway retry.
func (p *WebhookProcessor) Process(ctx context.Context, eventID string, body []byte) (*WebhookResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payment.Webhook")
	defer span.End()

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, internal.ErrInvalidInput.WithMessage("invalid webhook payload").WithCause(err)
	}

	span.SetAttributes(attribute.String("event", event.Event), attribute.String("event_id", eventID))
	lg := logger.FromOr(ctx, p.logger).With("event_id", eventID, "event", event.Event)
	result := &WebhookResult{EventID: eventID, EventType: event.Event}

	seen, err := p.events.Seen(ctx, eventID)
	if err != nil {
		return nil, internal.ErrPersistence.WithMessage("failed to check webhook event").WithCause(err)
	}
	if seen {
		lg.Info("webhook event already processed")
		observability.RecordWebhookEvent(event.Event, "duplicate")
		result.Duplicate = true
		return result, nil
	}

	orderID := event.orderID()
	paymentID := event.paymentID()

	switch event.Event {
	case WebhookEventPaymentCaptured, WebhookEventOrderPaid:
		err = p.handleCaptured(ctx, lg, orderID, paymentID)
	case WebhookEventPaymentFailed:
		err = p.handleFailed(ctx, lg, orderID, event.payment())
	default:
		lg.Debug("ignoring webhook event")
		observability.RecordWebhookEvent(event.Event, "ignored")
		result.Ignored = true
		return result, nil
	}
	if err != nil {
		observability.RecordWebhookEvent(event.Event, "error")
		return nil, err
	}

	if err := p.events.Record(ctx, eventID, event.Event, orderID, paymentID); err != nil {
		observability.RecordWebhookEvent(event.Event, "error")
		return nil, internal.ErrPersistence.WithMessage("failed to record webhook event").WithCause(err)
	}

	observability.RecordWebhookEvent(event.Event, "processed")
	return result, nil
}

func (p *WebhookProcessor) handleCaptured(ctx context.Context, lg *slog.Logger, orderID, paymentID string) error {
	if orderID == "" {
		lg.Warn("captured event without order reference")
		return nil
	}

	existing, err := p.orders.GetByID(ctx, orderID)
	if err != nil {
		return internal.ErrPersistence.WithMessage("failed to load order").WithCause(err)
	}
	if existing == nil {
		lg.Warn("webhook for unknown order", "order_id", orderID)
		return nil
	}

	result, err := p.completer.CompleteOrder(ctx, orderID, paymentID, SourceWebhook)
	if err != nil {
		if errors.Is(err, internal.ErrOrderNotFound) || errors.Is(err, internal.ErrPaymentNotCaptured) {
			lg.Warn("captured event not applicable to order", "order_id", orderID, "error", err)
			return nil
		}
		return err
	}

	lg.Info("webhook completed order", "order_id", orderID, "payment_id", paymentID, "credited", result.Credited)
	return nil
}

func (p *WebhookProcessor) handleFailed(ctx context.Context, lg *slog.Logger, orderID string, payment *gatewaytypes.Payment) error {
	if orderID == "" || payment == nil {
		lg.Warn("failed event without payment entity")
		return nil
	}

	failure := failureFromPayment(payment)
	failure.At = time.Now().UTC()

	changed, err := p.orders.MarkFailed(ctx, orderID, failure)
	if err != nil {
		return internal.ErrPersistence.WithMessage(fmt.Sprintf("failed to mark order %s failed", orderID)).WithCause(err)
	}
	if !changed {
		lg.Info("payment failure not applied, order is not pending", "order_id", orderID)
		return nil
	}

	lg.Info("order marked failed", "order_id", orderID, "failure_code", failure.Code)
	if err := p.publisher.Publish(ctx, events.NewPaymentFailedEvent(orderID, failure.PaymentID, failure.Code, failure.Reason, SourceWebhook)); err != nil {
		lg.Warn("failed to publish payment failed event", "error", err)
	}
	return nil
}
