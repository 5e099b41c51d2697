package postgres

import (
	"context"
	"errors"
	"time"

	orderDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/order"
	"github.com/frahmantamala/credit-payments/internal/order"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var _ order.RepositoryAPI = (*OrderRepository)(nil)

func (r *OrderRepository) Create(ctx context.Context, o *orderDatamodel.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*orderDatamodel.Order, error) {
	var o orderDatamodel.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) GetByIDAndUser(ctx context.Context, id, userID string) (*orderDatamodel.Order, error) {
	var o orderDatamodel.Order
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) MarkFailed(ctx context.Context, id string, failure order.Failure) (bool, error) {
	at := failure.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	updates := map[string]interface{}{
		"status":       orderDatamodel.StatusFailed,
		"completed_at": at,
		"updated_at":   at,
	}

	if failure.PaymentID != "" {
		updates["payment_id"] = failure.PaymentID
	}

	if failure.PaymentStatus != "" {
		updates["payment_status"] = failure.PaymentStatus
	}

	if failure.Code != "" {
		updates["failure_code"] = failure.Code
	}

	if failure.Reason != "" {
		updates["failure_reason"] = failure.Reason
	}

	result := r.db.WithContext(ctx).
		Model(&orderDatamodel.Order{}).
		Where("id = ? AND status = ?", id, orderDatamodel.StatusCreated).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *OrderRepository) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]*orderDatamodel.Order, error) {
	var orders []*orderDatamodel.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", orderDatamodel.StatusCreated, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
