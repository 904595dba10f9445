// Package authgate provides a provider-based authentication handler with
// CSRF-protected sign-in, stateless (JWT) or Redis-backed server sessions,
// and a catch-all HTTP surface mounted under a configurable base path
// (default /api/auth). The companion client package exposes the same
// operations (sign-in, sign-out, session refresh, provider listing, CSRF
// token fetch) behind a reactive session store for Go callers.
//
// The package is designed for concurrent server workloads: Handler methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Handler], [Builder], [Config],
// and value types (SessionPayload, ProviderInfo, MetricsSnapshot, etc.).
// Coordination details such as token helpers, rate limiting, and audit
// sinks live under internal/ and are never exported directly.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store encodings in its public API.
//   - Perform I/O outside of request handling (construction via Builder is
//     allocation-only until Build).
//   - Implement provider-specific OAuth token exchange; that is the
//     provider's Exchange extension point.
package authgate
