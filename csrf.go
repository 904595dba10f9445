package authgate

import (
	"crypto/subtle"
	"strings"

	"github.com/mwhitford/authgate/internal"
)

// csrfManager implements the double-submit pattern: the cookie carries
// "token|signature" where the signature is an HMAC of the token under the
// handler secret, so verification needs no server-side state.
type csrfManager struct {
	secret []byte
}

func newCSRFManager(secret []byte) *csrfManager {
	return &csrfManager{secret: secret}
}

// issue returns a fresh token and its cookie encoding.
func (m *csrfManager) issue() (token, cookieValue string, err error) {
	token, err = internal.NewCSRFToken()
	if err != nil {
		return "", "", err
	}
	return token, token + "|" + internal.SignToken(m.secret, token), nil
}

// tokenFromCookie recovers the token from a cookie value, verifying the
// signature. Returns "" for anything malformed or tampered.
func (m *csrfManager) tokenFromCookie(cookieValue string) string {
	token, sig, ok := strings.Cut(cookieValue, "|")
	if !ok || token == "" {
		return ""
	}
	if !internal.VerifyTokenSignature(m.secret, token, sig) {
		return ""
	}
	return token
}

// verify checks a submitted token against the cookie value.
func (m *csrfManager) verify(cookieValue, submitted string) bool {
	token := m.tokenFromCookie(cookieValue)
	if token == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) == 1
}
