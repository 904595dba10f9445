package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds sign-in throttle tuning parameters.
type Config struct {
	EnableIPThrottle  bool
	MaxSignInAttempts int
	SignInCooldown    time.Duration
}

// Limiter enforces per-identifier and per-IP sign-in rate limits using
// Redis counters with fixed-window semantics.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// CheckSignIn checks whether the identifier+IP pair is within the sign-in
// attempt budget. It does not consume an attempt.
func (l *Limiter) CheckSignIn(ctx context.Context, identifier, ip string) error {
	if err := l.checkCounter(ctx, identifierKey(identifier), l.config.MaxSignInAttempts); err != nil {
		return err
	}

	if l.config.EnableIPThrottle && ip != "" {
		if err := l.checkCounter(ctx, ipKey(ip), l.config.MaxSignInAttempts); err != nil {
			return err
		}
	}

	return nil
}

// RecordFailure consumes one attempt for the identifier+IP pair. Returns
// ErrRateLimited when the budget is now exhausted.
func (l *Limiter) RecordFailure(ctx context.Context, identifier, ip string) error {
	count, err := l.incrementWithTTL(ctx, identifierKey(identifier), l.config.SignInCooldown)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxSignInAttempts) {
		return ErrRateLimited
	}

	if l.config.EnableIPThrottle && ip != "" {
		count, err = l.incrementWithTTL(ctx, ipKey(ip), l.config.SignInCooldown)
		if err != nil {
			return err
		}
		if count > int64(l.config.MaxSignInAttempts) {
			return ErrRateLimited
		}
	}

	return nil
}

// Reset clears the failure counters for the identifier+IP pair. Called on
// successful sign-in.
func (l *Limiter) Reset(ctx context.Context, identifier, ip string) error {
	keys := []string{identifierKey(identifier)}
	if l.config.EnableIPThrottle && ip != "" {
		keys = append(keys, ipKey(ip))
	}

	if err := l.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Attempts returns the current failure counter for an identifier. Missing
// keys return zero and do not reveal account existence.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int, error) {
	count, err := l.redis.Get(ctx, identifierKey(identifier)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

func (l *Limiter) checkCounter(ctx context.Context, key string, maxAttempts int) error {
	count, err := l.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count >= int64(maxAttempts) {
		return ErrRateLimited
	}

	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func identifierKey(identifier string) string {
	return "agl:id:" + identifier
}

func ipKey(ip string) string {
	return "agl:ip:" + ip
}
