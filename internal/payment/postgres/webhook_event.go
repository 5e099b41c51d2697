package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/frahmantamala/credit-payments/internal/core/datamodel/webhookevent"
	"github.com/frahmantamala/credit-payments/internal/payment"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

var _ payment.WebhookEventRepository = (*WebhookEventRepository)(nil)

func (r *WebhookEventRepository) Seen(ctx context.Context, eventID string) (bool, error) {
	var event webhookevent.WebhookEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Record stores the event id. A concurrent redelivery that already recorded it is not an error.
func (r *WebhookEventRepository) Record(ctx context.Context, eventID, eventType, orderID, paymentID string) error {
	event := &webhookevent.WebhookEvent{
		EventID:    eventID,
		EventType:  eventType,
		OrderID:    orderID,
		PaymentID:  paymentID,
		ReceivedAt: time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(event).Error
}
