package webhookevent

import "time"

// WebhookEvent records a gateway event that was processed successfully.
type WebhookEvent struct {
	EventID    string    `gorm:"column:event_id;primaryKey"`
	EventType  string    `gorm:"column:event_type;not null"`
	OrderID    string    `gorm:"column:order_id"`
	PaymentID  string    `gorm:"column:payment_id"`
	ReceivedAt time.Time `gorm:"column:received_at;not null"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}
