package credit

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/credit-payments/internal"
)

type Service struct {
	repo     RepositoryAPI
	cache    BalanceCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, cache BalanceCache, cacheTTL time.Duration, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NoopCache()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Balance returns the user's balance, opening the account with the starter balance on first use.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, internal.ErrInvalidInput.WithMessage("userId is required")
	}

	if cached, ok, err := s.cache.Get(ctx, userID); err != nil {
		s.logger.Warn("balance cache read failed", "user_id", userID, "error", err)
	} else if ok {
		return cached, nil
	}

	// taken before the ledger read so a concurrent mutation voids this fill
	generation, genErr := s.cache.Generation(ctx, userID)
	if genErr != nil {
		s.logger.Warn("balance cache generation read failed", "user_id", userID, "error", genErr)
	}

	if err := s.repo.EnsureAccount(ctx, userID); err != nil {
		s.logger.Error("failed to ensure credit account", "user_id", userID, "error", err)
		return 0, internal.ErrPersistence.WithCause(err)
	}

	balance, _, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		s.logger.Error("failed to read balance", "user_id", userID, "error", err)
		return 0, internal.ErrPersistence.WithCause(err)
	}

	if s.cacheTTL > 0 && genErr == nil {
		stored, err := s.cache.SetIfGeneration(ctx, userID, balance, generation, s.cacheTTL)
		if err != nil {
			s.logger.Warn("balance cache write failed", "user_id", userID, "error", err)
		} else if !stored {
			s.logger.Debug("balance changed during read, not caching", "user_id", userID)
		}
	}

	return balance, nil
}

func (s *Service) Add(ctx context.Context, userID string, amount int64) error {
	if userID == "" || amount <= 0 {
		return internal.ErrInvalidInput.WithMessage("userId and a positive amount are required")
	}

	if err := s.repo.AddCredits(ctx, userID, amount); err != nil {
		s.logger.Error("failed to add credits", "user_id", userID, "amount", amount, "error", err)
		return internal.ErrPersistence.WithCause(err)
	}

	s.Invalidate(ctx, userID)
	s.logger.Info("credits added", "user_id", userID, "amount", amount)
	return nil
}

// Consume spends amount credits and returns the remaining balance.
func (s *Service) Consume(ctx context.Context, userID string, amount int64) (int64, error) {
	if userID == "" || amount <= 0 {
		return 0, internal.ErrInvalidInput.WithMessage("userId and a positive amount are required")
	}

	if err := s.repo.EnsureAccount(ctx, userID); err != nil {
		return 0, internal.ErrPersistence.WithCause(err)
	}

	ok, err := s.repo.ConsumeCredits(ctx, userID, amount)
	if err != nil {
		s.logger.Error("failed to consume credits", "user_id", userID, "amount", amount, "error", err)
		return 0, internal.ErrPersistence.WithCause(err)
	}
	s.Invalidate(ctx, userID)

	if !ok {
		s.logger.Info("insufficient credits", "user_id", userID, "amount", amount)
		return 0, internal.ErrInsufficientCredits
	}

	balance, _, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, internal.ErrPersistence.WithCause(err)
	}
	return balance, nil
}

// Invalidate drops any cached balance for the user.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("balance cache invalidation failed", "user_id", userID, "error", err)
	}
}
