package internal

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	csrfSecretSize  = 32
	oauthStateSize  = 24
	minimumKeyBytes = 32
)

// ErrWeakSecret is returned when a configured secret is shorter than the
// minimum accepted length.
var ErrWeakSecret = errors.New("secret must be at least 32 bytes")

// NewCSRFToken returns a fresh anti-forgery token as base64url without
// padding. The raw entropy is 32 bytes.
func NewCSRFToken() (string, error) {
	var raw [csrfSecretSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewStateToken returns an opaque state value for the authorization
// redirect leg of an OAuth sign-in.
func NewStateToken() (string, error) {
	var raw [oauthStateSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// SignToken computes the keyed hash bound to a CSRF token. The cookie
// stores token and hash together so the handler can verify a submitted
// token without server-side state.
func SignToken(secret []byte, token string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyTokenSignature reports whether sig is the keyed hash of token
// under secret. Comparison is constant time.
func VerifyTokenSignature(secret []byte, token, sig string) bool {
	expected := SignToken(secret, token)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// CheckSecret validates the handler secret strength.
func CheckSecret(secret string) error {
	if len(secret) < minimumKeyBytes {
		return ErrWeakSecret
	}
	return nil
}
