package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, cfg), mr
}

func TestLimiterBlocksAfterMaxAttempts(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxSignInAttempts: 3, SignInCooldown: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.CheckSignIn(ctx, "alice", ""); err != nil {
			t.Fatalf("attempt %d: unexpected block: %v", i, err)
		}
		if err := l.RecordFailure(ctx, "alice", ""); err != nil && !errors.Is(err, ErrRateLimited) {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	if err := l.CheckSignIn(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// Other identifiers are unaffected.
	if err := l.CheckSignIn(ctx, "bob", ""); err != nil {
		t.Fatalf("expected bob to pass, got %v", err)
	}
}

func TestLimiterWindowExpires(t *testing.T) {
	l, mr := newTestLimiter(t, Config{MaxSignInAttempts: 1, SignInCooldown: time.Minute})
	ctx := context.Background()

	if err := l.RecordFailure(ctx, "alice", ""); err != nil && !errors.Is(err, ErrRateLimited) {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := l.CheckSignIn(ctx, "alice", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected block, got %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckSignIn(ctx, "alice", ""); err != nil {
		t.Fatalf("expected the window to expire, got %v", err)
	}
}

func TestLimiterIPThrottle(t *testing.T) {
	l, _ := newTestLimiter(t, Config{
		EnableIPThrottle:  true,
		MaxSignInAttempts: 2,
		SignInCooldown:    time.Minute,
	})
	ctx := context.Background()

	// Two different identifiers from one address share the IP budget.
	for _, id := range []string{"alice", "bob"} {
		if err := l.RecordFailure(ctx, id, "198.51.100.7"); err != nil && !errors.Is(err, ErrRateLimited) {
			t.Fatalf("RecordFailure %s: %v", id, err)
		}
	}

	if err := l.CheckSignIn(ctx, "carol", "198.51.100.7"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected the IP budget to block, got %v", err)
	}
	if err := l.CheckSignIn(ctx, "carol", "203.0.113.9"); err != nil {
		t.Fatalf("expected another IP to pass, got %v", err)
	}
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxSignInAttempts: 1, SignInCooldown: time.Minute})
	ctx := context.Background()

	if err := l.RecordFailure(ctx, "alice", ""); err != nil && !errors.Is(err, ErrRateLimited) {
		t.Fatalf("RecordFailure: %v", err)
	}
	if err := l.Reset(ctx, "alice", ""); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := l.CheckSignIn(ctx, "alice", ""); err != nil {
		t.Fatalf("expected a clean slate after reset, got %v", err)
	}

	n, err := l.Attempts(ctx, "alice")
	if err != nil || n != 0 {
		t.Fatalf("expected zero attempts, got %d (%v)", n, err)
	}
}

func TestLimiterAttempts(t *testing.T) {
	l, _ := newTestLimiter(t, Config{MaxSignInAttempts: 5, SignInCooldown: time.Minute})
	ctx := context.Background()

	if n, err := l.Attempts(ctx, "nobody"); err != nil || n != 0 {
		t.Fatalf("missing key must read as zero, got %d (%v)", n, err)
	}

	for i := 0; i < 2; i++ {
		if err := l.RecordFailure(ctx, "alice", ""); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if n, err := l.Attempts(ctx, "alice"); err != nil || n != 2 {
		t.Fatalf("expected 2 attempts, got %d (%v)", n, err)
	}
}
