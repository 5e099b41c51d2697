package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frahmantamala/credit-payments/internal"
	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/order"
	"github.com/frahmantamala/credit-payments/internal/paymentgateway"
	"github.com/frahmantamala/credit-payments/pkg/logger"
)

type VerificationService struct {
	keySecret string
	gateway   GatewayAPI
	orders    order.RepositoryAPI
	completer CompleterAPI
	publisher Publisher
	logger    *slog.Logger
}

func NewVerificationService(keySecret string, gateway GatewayAPI, orders order.RepositoryAPI, completer CompleterAPI, publisher Publisher, logger *slog.Logger) *VerificationService {
	if publisher == nil {
		publisher = NoopPublisher()
	}
	return &VerificationService{
		keySecret: keySecret,
		gateway:   gateway,
		orders:    orders,
		completer: completer,
		publisher: publisher,
		logger:    logger,
	}
}

// Verify confirms a checkout result and credits the order's owner. It is
// idempotent: a completed order reports success with its recorded credits.
func (s *VerificationService) Verify(ctx context.Context, userID string, req VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "payment.Verify")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	if err := req.Validate(); err != nil {
		return nil, err
	}

	lg := logger.FromOr(ctx, s.logger).With("order_id", req.OrderID, "payment_id", req.PaymentID)

	record, err := s.orders.GetByIDAndUser(ctx, req.OrderID, userID)
	if err != nil {
		return nil, internal.ErrPersistence.WithMessage("failed to load order").WithCause(err)
	}
	if record == nil {
		return nil, s.missingOrder(ctx, lg, req.OrderID)
	}

	current := order.FromDataModel(record)

	if current.IsCompleted() {
		observability.RecordPaymentVerified("already_completed")
		return &VerifyPaymentResponse{Success: true, Credits: current.Credits}, nil
	}

	if !VerifyPaymentSignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		lg.Warn("payment signature mismatch")
		s.markFailed(ctx, lg, current.ID, order.Failure{
			PaymentID: req.PaymentID,
			Code:      FailureCodeSignatureMismatch,
			Reason:    "checkout signature did not match",
		})
		observability.RecordPaymentVerified("invalid_signature")
		return nil, internal.ErrInvalidSignature
	}

	payment, err := s.gateway.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		if paymentgateway.IsRetryable(err) {
			lg.Error("gateway payment lookup failed", "error", err)
			observability.RecordPaymentVerified("gateway_error")
			return nil, internal.ErrPaymentGateway.WithCause(err)
		}

		failure := order.Failure{PaymentID: req.PaymentID, Code: FailureCodeNotCaptured, Reason: err.Error()}
		var apiErr *paymentgateway.APIError
		if errors.As(err, &apiErr) {
			if apiErr.Code != "" {
				failure.Code = apiErr.Code
			}
			if apiErr.Description != "" {
				failure.Reason = apiErr.Description
			}
		}
		s.markFailed(ctx, lg, current.ID, failure)
		observability.RecordPaymentVerified("not_captured")
		return nil, internal.ErrPaymentNotCaptured.WithCause(err)
	}

	if payment.OrderID != req.OrderID {
		lg.Warn("payment belongs to a different order", "payment_order_id", payment.OrderID)
		s.markFailed(ctx, lg, current.ID, order.Failure{
			PaymentID:     req.PaymentID,
			PaymentStatus: string(payment.Status),
			Code:          FailureCodeOrderMismatch,
			Reason:        "payment was made against order " + payment.OrderID,
		})
		observability.RecordPaymentVerified("not_captured")
		return nil, internal.ErrPaymentNotCaptured.WithMessage("payment does not belong to order")
	}

	if !payment.IsCaptured() {
		lg.Warn("payment not captured", "status", payment.Status)
		s.markFailed(ctx, lg, current.ID, failureFromPayment(payment))
		observability.RecordPaymentVerified("not_captured")
		return nil, internal.ErrPaymentNotCaptured
	}

	result, err := s.completer.CompleteOrder(ctx, req.OrderID, req.PaymentID, SourceVerify)
	if err != nil {
		observability.RecordPaymentVerified("error")
		return nil, err
	}

	observability.RecordPaymentVerified("success")
	lg.Info("payment verified", "credited", result.Credited, "credits", result.Order.Credits)
	return &VerifyPaymentResponse{Success: true, Credits: result.Order.Credits}, nil
}

// missingOrder tells an order owned by someone else apart from one that does not exist.
func (s *VerificationService) missingOrder(ctx context.Context, lg *slog.Logger, orderID string) error {
	record, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return internal.ErrPersistence.WithMessage("failed to load order").WithCause(err)
	}
	if record == nil {
		observability.RecordPaymentVerified("not_found")
		return internal.ErrOrderNotFound
	}
	lg.Warn("verification attempted for another user's order")
	observability.RecordPaymentVerified("forbidden")
	return internal.ErrForbidden.WithMessage("order does not belong to user")
}

func (s *VerificationService) markFailed(ctx context.Context, lg *slog.Logger, orderID string, failure order.Failure) {
	if failure.At.IsZero() {
		failure.At = time.Now().UTC()
	}

	changed, err := s.orders.MarkFailed(ctx, orderID, failure)
	if err != nil {
		// the caller's error is the useful one; a stale created row is picked up by reconciliation
		lg.Error("failed to mark order failed", "error", err, "failure_code", failure.Code)
		return
	}
	if !changed {
		return
	}

	lg.Info("order marked failed", "failure_code", failure.Code)
	if err := s.publisher.Publish(ctx, events.NewPaymentFailedEvent(orderID, failure.PaymentID, failure.Code, failure.Reason, SourceVerify)); err != nil {
		lg.Warn("failed to publish payment failed event", "error", err)
	}
}

func failureFromPayment(p *gatewaytypes.Payment) order.Failure {
	failure := order.Failure{
		PaymentID:     p.ID,
		PaymentStatus: string(p.Status),
		Code:          p.FailureCode(),
		Reason:        p.FailureReason(),
	}
	if failure.Code == "" {
		failure.Code = FailureCodeNotCaptured
	}
	if failure.Reason == "" {
		failure.Reason = "payment status is " + string(p.Status)
	}
	return failure
}
