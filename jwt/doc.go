// Package jwt issues and validates the HMAC-signed session tokens used by
// the stateless session strategy. Tokens carry the session ID and the
// provider-supplied user payload; validation pins the signing algorithm and
// enforces expiry with bounded leeway.
package jwt
