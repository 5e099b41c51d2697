package order

import "time"

const (
	StatusCreated   = "created"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
)

type Order struct {
	ID            string     `gorm:"column:id;primaryKey"`
	UserID        string     `gorm:"column:user_id;not null;index"`
	ProductID     string     `gorm:"column:product_id;not null"`
	Amount        int64      `gorm:"column:amount;not null"`
	Currency      string     `gorm:"column:currency;not null"`
	Credits       int64      `gorm:"column:credits;not null"`
	Receipt       string     `gorm:"column:receipt"`
	Status        string     `gorm:"column:status;not null;index"`
	PaymentID     *string    `gorm:"column:payment_id"`
	PaymentStatus *string    `gorm:"column:payment_status"`
	FailureCode   *string    `gorm:"column:failure_code"`
	FailureReason *string    `gorm:"column:failure_reason"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

func (Order) TableName() string {
	return "orders"
}
