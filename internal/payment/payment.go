// Package payment creates purchase orders, verifies checkout results and
// processes gateway webhooks. Every confirmed capture goes through one
// CompleteOrder call so credits are applied exactly once per order.
package payment

import (
	"context"

	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/order"
)

// Sources name the path that drove a state change.
const (
	SourceVerify    = "verify"
	SourceWebhook   = "webhook"
	SourceReconcile = "reconcile"
)

// Failure codes recorded locally when the gateway did not supply one.
const (
	FailureCodeSignatureMismatch = "SIGNATURE_MISMATCH"
	FailureCodeOrderMismatch     = "ORDER_MISMATCH"
	FailureCodeNotCaptured       = "NOT_CAPTURED"
)

// GatewayAPI is the part of the gateway client the payment flow needs.
type GatewayAPI interface {
	CreateOrder(ctx context.Context, req *gatewaytypes.CreateOrderRequest) (*gatewaytypes.Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*gatewaytypes.Payment, error)
	FetchOrderPayments(ctx context.Context, orderID string) ([]gatewaytypes.Payment, error)
}

// CompletionResult describes the outcome of CompleteOrder. Credited is true
// only for the single call that moved the order into completed.
type CompletionResult struct {
	Order    *order.Order
	Credited bool
}

// CompleterAPI applies a confirmed capture to an order and its owner's balance.
type CompleterAPI interface {
	CompleteOrder(ctx context.Context, orderID, paymentID, source string) (*CompletionResult, error)
}

// WebhookEventRepository remembers processed gateway events.
type WebhookEventRepository interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, eventType, orderID, paymentID string) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) error {
	return nil
}

// NoopPublisher drops every event.
func NoopPublisher() Publisher {
	return noopPublisher{}
}
