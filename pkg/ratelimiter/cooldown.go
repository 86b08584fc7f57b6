package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/Ahmad-Hisham007/tutorate-server/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string { return e.Message }

func (e *RateLimitError) Unwrap() error { return apperror.ErrRateLimitExceeded }

// Cooldown enforces a minimum interval between repeated actions of one
// account using a redis SETNX key. A nil client allows everything.
type Cooldown struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewCooldown(rdb *redis.Client, log *zap.Logger) *Cooldown {
	return &Cooldown{rdb: rdb, log: log}
}

func key(accountID uuid.UUID, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", accountID.String(), action)
}

// Acquire claims the cooldown window. The returned release func clears the
// key so a failed action does not lock the caller out.
func (c *Cooldown) Acquire(ctx context.Context, accountID uuid.UUID, action string, window time.Duration) (func(), error) {
	noop := func() {}
	if c == nil || c.rdb == nil || window <= 0 {
		return noop, nil
	}

	k := key(accountID, action)
	wasSet, err := c.rdb.SetNX(ctx, k, "locked", window).Result()
	if err != nil {
		// redis trouble must not block the marketplace
		c.log.Warn("cooldown check failed, allowing", zap.String("action", action), zap.Error(err))
		return noop, nil
	}

	if !wasSet {
		ttl, err := c.rdb.TTL(ctx, k).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return noop, &RateLimitError{
			RetryAfter: ttl,
			Message:    fmt.Sprintf("please wait %.0f seconds before trying again", ttl.Seconds()),
		}
	}

	return func() {
		if err := c.rdb.Del(context.WithoutCancel(ctx), k).Err(); err != nil {
			c.log.Warn("failed to clear cooldown", zap.String("action", action), zap.Error(err))
		}
	}, nil
}
