// Package order is the store of purchase orders keyed by the gateway order id.
package order

import (
	"context"
	"time"

	orderDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/order"
)

type Status string

const (
	StatusCreated   Status = orderDatamodel.StatusCreated
	StatusCompleted Status = orderDatamodel.StatusCompleted
	StatusFailed    Status = orderDatamodel.StatusFailed
	StatusRefunded  Status = orderDatamodel.StatusRefunded
)

type Order struct {
	ID            string
	UserID        string
	ProductID     string
	Amount        int64
	Currency      string
	Credits       int64
	Receipt       string
	Status        Status
	PaymentID     string
	PaymentStatus string
	FailureCode   string
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func (o *Order) IsCompleted() bool {
	return o.Status == StatusCompleted
}

func (o *Order) IsPending() bool {
	return o.Status == StatusCreated
}

// Failure carries the diagnostic fields recorded when an order moves to failed.
type Failure struct {
	PaymentID     string
	PaymentStatus string
	Code          string
	Reason        string
	At            time.Time
}

// RepositoryAPI persists orders. A lookup miss returns (nil, nil).
type RepositoryAPI interface {
	Create(ctx context.Context, o *orderDatamodel.Order) error
	GetByID(ctx context.Context, id string) (*orderDatamodel.Order, error)
	GetByIDAndUser(ctx context.Context, id, userID string) (*orderDatamodel.Order, error)
	// MarkFailed moves a created order to failed and reports whether the row changed.
	MarkFailed(ctx context.Context, id string, failure Failure) (bool, error)
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]*orderDatamodel.Order, error)
}

func ToDataModel(o *Order) *orderDatamodel.Order {
	return &orderDatamodel.Order{
		ID:            o.ID,
		UserID:        o.UserID,
		ProductID:     o.ProductID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Credits:       o.Credits,
		Receipt:       o.Receipt,
		Status:        string(o.Status),
		PaymentID:     optional(o.PaymentID),
		PaymentStatus: optional(o.PaymentStatus),
		FailureCode:   optional(o.FailureCode),
		FailureReason: optional(o.FailureReason),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		CompletedAt:   o.CompletedAt,
	}
}

func FromDataModel(o *orderDatamodel.Order) *Order {
	return &Order{
		ID:            o.ID,
		UserID:        o.UserID,
		ProductID:     o.ProductID,
		Amount:        o.Amount,
		Currency:      o.Currency,
		Credits:       o.Credits,
		Receipt:       o.Receipt,
		Status:        Status(o.Status),
		PaymentID:     deref(o.PaymentID),
		PaymentStatus: deref(o.PaymentStatus),
		FailureCode:   deref(o.FailureCode),
		FailureReason: deref(o.FailureReason),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		CompletedAt:   o.CompletedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
