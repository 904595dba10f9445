package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when no record exists for the session ID.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when the record exists but its absolute
	// expiry has passed. The record is deleted before the error returns.
	ErrExpired = errors.New("session expired")
	// ErrCorrupt is returned when the stored blob cannot be decoded.
	ErrCorrupt = errors.New("session record corrupt")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const minTTL = time.Second

// Store is a Redis-backed session store that handles persistence,
// expiration, sliding renewal, and expiry jitter.
type Store struct {
	redis         redis.UniversalClient
	prefix        string
	jitterEnabled bool
	jitterRange   time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace. When jitterEnabled is true, each
// write extends the TTL by a random amount up to jitterRange so that bulk
// sign-ins do not expire in lockstep.
func NewStore(
	redisClient redis.UniversalClient,
	prefix string,
	jitterEnabled bool,
	jitterRange time.Duration,
) *Store {
	if prefix == "" {
		prefix = "ags"
	}
	return &Store{
		redis:         redisClient,
		prefix:        prefix,
		jitterEnabled: jitterEnabled,
		jitterRange:   jitterRange,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save persists a [Record] with the given TTL.
func (s *Store) Save(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record requires an ID")
	}
	if ttl < minTTL {
		ttl = minTTL
	}

	blob, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if err := s.redis.Set(ctx, s.key(rec.ID), blob, s.withJitter(ttl)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Get loads the record for sessionID. A record whose absolute expiry has
// passed is deleted and reported as ErrExpired even if the Redis TTL has
// not fired yet.
func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	blob, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		_ = s.redis.Del(ctx, s.key(sessionID)).Err()
		return nil, ErrCorrupt
	}

	if rec.Expired(time.Now()) {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, ErrExpired
	}

	return &rec, nil
}

// Touch extends the record's lifetime: ExpiresAt moves to now+ttl,
// LastRefreshedAt is stamped, and the blob is rewritten with a fresh TTL.
func (s *Store) Touch(ctx context.Context, rec *Record, ttl time.Duration) error {
	if rec == nil {
		return ErrNotFound
	}

	now := time.Now()
	rec.ExpiresAt = now.Add(ttl)
	rec.LastRefreshedAt = now

	return s.Save(ctx, rec, ttl)
}

// Delete removes the record. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) withJitter(ttl time.Duration) time.Duration {
	if !s.jitterEnabled || s.jitterRange <= 0 {
		return ttl
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(s.jitterRange)))
	if err != nil {
		return ttl
	}

	return ttl + time.Duration(n.Int64())
}
