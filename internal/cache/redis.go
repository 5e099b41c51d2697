// Package cache backs the credit balance read path with Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/credit-payments/internal/credit"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects and pings so misconfiguration fails at startup.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

type RedisBalanceCache struct {
	rdb *redis.Client
}

func NewRedisBalanceCache(rdb *redis.Client) *RedisBalanceCache {
	return &RedisBalanceCache{rdb: rdb}
}

var _ credit.BalanceCache = (*RedisBalanceCache)(nil)

func BalanceKey(userID string) string {
	return "credits:" + userID
}

// GenerationKey counts invalidations for a user. It outlives any balance TTL.
func GenerationKey(userID string) string {
	return BalanceKey(userID) + ":gen"
}

const generationTTL = 24 * time.Hour

func (c *RedisBalanceCache) Get(ctx context.Context, userID string) (int64, bool, error) {
	raw, err := c.rdb.Get(ctx, BalanceKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	balance, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cached balance for %s: %w", userID, err)
	}
	return balance, true, nil
}

func (c *RedisBalanceCache) Generation(ctx context.Context, userID string) (int64, error) {
	return readGeneration(ctx, c.rdb, userID)
}

// SetIfGeneration stores the balance only while the generation still equals
// the token the caller read before going to the ledger.
func (c *RedisBalanceCache) SetIfGeneration(ctx context.Context, userID string, balance, generation int64, ttl time.Duration) (bool, error) {
	stored := false
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, userID)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, BalanceKey(userID), strconv.FormatInt(balance, 10), ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, GenerationKey(userID))

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored, nil
}

func (c *RedisBalanceCache) Delete(ctx context.Context, userID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(userID))
		pipe.Expire(ctx, GenerationKey(userID), generationTTL)
		pipe.Del(ctx, BalanceKey(userID))
		return nil
	})
	return err
}

func readGeneration(ctx context.Context, cmd redis.Cmdable, userID string) (int64, error) {
	generation, err := cmd.Get(ctx, GenerationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}
