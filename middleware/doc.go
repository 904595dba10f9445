// Package middleware provides net/http middleware for protecting routes
// with an authgate session. RequireSession rejects unauthenticated
// requests and makes the session payload available to downstream handlers
// through the request context.
package middleware
