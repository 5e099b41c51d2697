// Package credit is the per-user credit ledger. Balances change only through atomic SQL statements.
package credit

import (
	"context"
	"time"
)

// RepositoryAPI exposes the ledger primitives. None of them read-then-write from Go.
type RepositoryAPI interface {
	// EnsureAccount creates the ledger row with the starter balance if it does not exist.
	EnsureAccount(ctx context.Context, userID string) error
	GetBalance(ctx context.Context, userID string) (balance int64, found bool, err error)
	// AddCredits unconditionally increments the balance, creating the account first when needed.
	AddCredits(ctx context.Context, userID string, amount int64) error
	// ConsumeCredits decrements only when the balance covers amount; false means nothing changed.
	ConsumeCredits(ctx context.Context, userID string, amount int64) (bool, error)
}

// BalanceCache is a read-through cache of balances. Implementations must tolerate misses.
//
// Fills are guarded by a per-user generation: a reader takes Generation before
// reading the ledger and stores with SetIfGeneration, which is refused when a
// Delete ran in between. A fill can therefore never resurrect a balance older
// than the last mutation.
type BalanceCache interface {
	Get(ctx context.Context, userID string) (int64, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	SetIfGeneration(ctx context.Context, userID string, balance, generation int64, ttl time.Duration) (bool, error)
	// Delete drops the cached value and bumps the generation.
	Delete(ctx context.Context, userID string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (int64, bool, error) {
	return 0, false, nil
}

func (noopCache) Generation(context.Context, string) (int64, error) {
	return 0, nil
}

func (noopCache) SetIfGeneration(context.Context, string, int64, int64, time.Duration) (bool, error) {
	return false, nil
}

func (noopCache) Delete(context.Context, string) error {
	return nil
}

// NoopCache disables balance caching.
func NoopCache() BalanceCache {
	return noopCache{}
}
