package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/credit-payments/internal"
	orderDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/order"
	gatewaytypes "github.com/frahmantamala/credit-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/credit-payments/internal/core/events"
	"github.com/frahmantamala/credit-payments/internal/credit"
	creditpg "github.com/frahmantamala/credit-payments/internal/credit/postgres"
	"github.com/frahmantamala/credit-payments/internal/observability"
	"github.com/frahmantamala/credit-payments/internal/order"
	"github.com/frahmantamala/credit-payments/internal/payment"
)

// OrderCompleter is the single place where an order becomes completed and its credits are applied.
type OrderCompleter struct {
	db             *gorm.DB
	starterBalance int64
	cache          credit.BalanceCache
	publisher      payment.Publisher
	logger         *slog.Logger
}

func NewOrderCompleter(db *gorm.DB, starterBalance int64, cache credit.BalanceCache, publisher payment.Publisher, logger *slog.Logger) *OrderCompleter {
	if cache == nil {
		cache = credit.NoopCache()
	}
	if publisher == nil {
		publisher = payment.NoopPublisher()
	}
	return &OrderCompleter{
		db:             db,
		starterBalance: starterBalance,
		cache:          cache,
		publisher:      publisher,
		logger:         logger,
	}
}

var _ payment.CompleterAPI = (*OrderCompleter)(nil)

// CompleteOrder moves the order to completed and credits its owner in one
// transaction. The conditional update decides the winner when verification,
// webhook and reconciliation race; losers observe completed and report success
// without crediting.
func (c *OrderCompleter) CompleteOrder(ctx context.Context, orderID, paymentID, source string) (*payment.CompletionResult, error) {
	var (
		credited bool
		record   orderDatamodel.Order
	)

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":         orderDatamodel.StatusCompleted,
			"payment_status": string(gatewaytypes.PaymentStatusCaptured),
			"failure_code":   nil,
			"failure_reason": nil,
			"completed_at":   now,
			"updated_at":     now,
		}
		if paymentID != "" {
			updates["payment_id"] = paymentID
		}

		result := tx.Model(&orderDatamodel.Order{}).
			Where("id = ? AND status IN ?", orderID, []string{orderDatamodel.StatusCreated, orderDatamodel.StatusFailed}).
			Updates(updates)
		if result.Error != nil {
			return fmt.Errorf("complete order: %w", result.Error)
		}

		if err := tx.Where("id = ?", orderID).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return internal.ErrOrderNotFound
			}
			return fmt.Errorf("reload order: %w", err)
		}

		if result.RowsAffected == 0 {
			if record.Status == orderDatamodel.StatusCompleted {
				return nil
			}
			return internal.ErrPaymentNotCaptured.WithMessage(fmt.Sprintf("order is %s", record.Status))
		}

		ledger := creditpg.NewCreditRepository(tx, c.starterBalance)
		if err := ledger.AddCredits(ctx, record.UserID, record.Credits); err != nil {
			return fmt.Errorf("add credits: %w", err)
		}
		credited = true
		return nil
	})
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		c.logger.Error("failed to complete order", "error", err, "order_id", orderID, "payment_id", paymentID, "source", source)
		return nil, internal.ErrPersistence.WithMessage("failed to complete order").WithCause(err)
	}

	completed := order.FromDataModel(&record)
	if credited {
		if err := c.cache.Delete(ctx, completed.UserID); err != nil {
			c.logger.Warn("failed to invalidate balance cache", "error", err, "user_id", completed.UserID)
		}

		observability.RecordCreditsGranted(source, completed.Credits)
		c.logger.Info("credits granted",
			"order_id", completed.ID,
			"user_id", completed.UserID,
			"credits", completed.Credits,
			"source", source)

		event := events.NewCreditsGrantedEvent(completed.ID, completed.UserID, completed.PaymentID, completed.Credits, source)
		if err := c.publisher.Publish(ctx, event); err != nil {
			c.logger.Warn("failed to publish credits granted event", "error", err, "order_id", completed.ID)
		}
	}

	return &payment.CompletionResult{Order: completed, Credited: credited}, nil
}
