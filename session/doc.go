// Package session implements the Redis-backed server session store used by
// the database session strategy. Records are JSON-encoded and expire via
// Redis TTL; sliding renewal and optional expiry jitter are handled here so
// the handler never computes TTL arithmetic itself.
package session
