package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	creditDatamodel "github.com/frahmantamala/credit-payments/internal/core/datamodel/credit"
	"github.com/frahmantamala/credit-payments/internal/credit"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditRepository struct {
	db             *gorm.DB
	starterBalance int64
}

// NewCreditRepository binds the ledger to db. Pass a transaction handle to join an outer unit of work.
func NewCreditRepository(db *gorm.DB, starterBalance int64) *CreditRepository {
	return &CreditRepository{db: db, starterBalance: starterBalance}
}

var _ credit.RepositoryAPI = (*CreditRepository)(nil)

func (r *CreditRepository) EnsureAccount(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	account := &creditDatamodel.UserCredits{
		UserID:    userID,
		Credits:   r.starterBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(account).Error
}

func (r *CreditRepository) GetBalance(ctx context.Context, userID string) (int64, bool, error) {
	var account creditDatamodel.UserCredits
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return account.Credits, true, nil
}

func (r *CreditRepository) AddCredits(ctx context.Context, userID string, amount int64) error {
	if err := r.EnsureAccount(ctx, userID); err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&creditDatamodel.UserCredits{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits + ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("add credits: expected 1 row for user %s, got %d", userID, result.RowsAffected)
	}
	return nil
}

func (r *CreditRepository) ConsumeCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&creditDatamodel.UserCredits{}).
		Where("user_id = ? AND credits >= ?", userID, amount).
		Updates(map[string]interface{}{
			"credits":    gorm.Expr("credits - ?", amount),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
