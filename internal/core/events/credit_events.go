package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderCreated   = "order.created"
	EventTypeCreditsGranted = "credits.granted"
	EventTypePaymentFailed  = "payment.failed"
)

// AllEventTypes lists every event the payment flow publishes.
var AllEventTypes = []string{EventTypeOrderCreated, EventTypeCreditsGranted, EventTypePaymentFailed}

type OrderCreatedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

func NewOrderCreatedEvent(orderID, userID, productID string, amount int64, currency string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderCreated,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"order_id":   orderID,
				"user_id":    userID,
				"product_id": productID,
				"amount":     amount,
				"currency":   currency,
			},
		},
		OrderID:   orderID,
		UserID:    userID,
		ProductID: productID,
		Amount:    amount,
		Currency:  currency,
	}
}

// CreditsGrantedEvent is emitted once per order, after the completing transaction commits.
type CreditsGrantedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	Credits   int64  `json:"credits"`
	Source    string `json:"source"`
}

func NewCreditsGrantedEvent(orderID, userID, paymentID string, credits int64, source string) *CreditsGrantedEvent {
	return &CreditsGrantedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCreditsGranted,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"order_id":   orderID,
				"user_id":    userID,
				"payment_id": paymentID,
				"credits":    credits,
				"source":     source,
			},
		},
		OrderID:   orderID,
		UserID:    userID,
		PaymentID: paymentID,
		Credits:   credits,
		Source:    source,
	}
}

type PaymentFailedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	PaymentID     string `json:"payment_id"`
	FailureCode   string `json:"failure_code"`
	FailureReason string `json:"failure_reason"`
	Source        string `json:"source"`
}

func NewPaymentFailedEvent(orderID, paymentID, failureCode, failureReason, source string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentFailed,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"order_id":       orderID,
				"payment_id":     paymentID,
				"failure_code":   failureCode,
				"failure_reason": failureReason,
				"source":         source,
			},
		},
		OrderID:       orderID,
		PaymentID:     paymentID,
		FailureCode:   failureCode,
		FailureReason: failureReason,
		Source:        source,
	}
}
