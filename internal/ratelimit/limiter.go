// Package ratelimit caps how often one address may trigger outgoing mail or
// try a password reset code.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// Scopes keep the confirmation, reset and reset-code budgets apart.
const (
	ScopeConfirmation = "confirmation"
	ScopeReset        = "reset"
	ScopeResetConfirm = "reset-confirm"
)

// Throttle is consulted before an email is sent or a reset code is checked
// on behalf of key.
type Throttle interface {
	Allow(ctx context.Context, scope, key string) error
}

// Resetter gives a key its full budget back before the window ends.
type Resetter interface {
	Reset(ctx context.Context, scope, key string) error
}

type Config struct {
	MaxHits int
	Window  time.Duration
}

// Limiter is a fixed-window counter per scope and key stored in Redis.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{redis: redisClient, config: cfg}
}

// Allow records a hit and returns ErrRateLimited once the window budget is spent.
func (l *Limiter) Allow(ctx context.Context, scope, key string) error {
	count, err := l.incrementWithTTL(ctx, throttleKey(scope, key), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxHits) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter of scope and key.
func (l *Limiter) Reset(ctx context.Context, scope, key string) error {
	if err := l.redis.Del(ctx, throttleKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// incrementWithTTL opens the window with SET NX EX and counts the hit in the
// same MULTI, so a counter never exists without its TTL.
func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, ttl)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return incr.Val(), nil
}

func throttleKey(scope, key string) string {
	return "healthtracker:throttle:" + scope + ":" + key
}

// Noop allows everything. Used when no Redis address is configured.
type Noop struct{}

func (Noop) Allow(context.Context, string, string) error { return nil }

func (Noop) Reset(context.Context, string, string) error { return nil }
