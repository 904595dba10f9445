// Package client is the Go-side session companion for an authgate (or
// wire-compatible) backend. A [Client] bundles the dispatch operations
// (SignIn, SignOut, GetSession, GetProviders, GetCSRFToken) around a
// reactive [SessionStore] that consumers read synchronously or subscribe
// to.
//
// Operations are safe to call from multiple goroutines. There is no request
// deduplication: concurrent refreshes race and the last response wins.
package client
