// Package provider defines the identity sources a handler can sign users in
// with. Two kinds are built in: Credentials, which validates a submitted
// credential map through a caller-supplied Authorize callback, and OAuth,
// which carries the configuration needed to build an authorization redirect
// and exposes the code exchange as an extension point.
//
// Providers are registered in order through the handler builder; the
// registry freezes at build time and is read-only afterwards.
package provider
