package session

import (
	"time"

	"github.com/google/uuid"
)

// Record is the persisted form of one server session. User is the
// backend-defined payload returned by the provider that authenticated it;
// its shape is not fixed by this package.
type Record struct {
	ID              string         `json:"id"`
	UserID          string         `json:"uid,omitempty"`
	User            map[string]any `json:"user"`
	CreatedAt       time.Time      `json:"created_at"`
	ExpiresAt       time.Time      `json:"expires_at"`
	LastRefreshedAt time.Time      `json:"last_refreshed_at,omitzero"`
}

// NewID returns a fresh opaque session identifier.
func NewID() string {
	return uuid.NewString()
}

// Expired reports whether the record's absolute expiry has passed.
func (r *Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
