package credit

import "time"

type UserCredits struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Credits   int64     `gorm:"column:credits;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (UserCredits) TableName() string {
	return "user_credits"
}
