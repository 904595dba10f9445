package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed, tampered, or wrongly-signed tokens.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrTokenExpired is returned when the token signature is valid but
	// the expiry (with leeway) has passed.
	ErrTokenExpired = errors.New("session token expired")
)

const maxLeeway = 2 * time.Minute

// Config configures a [Manager]. Secret is the HS256 signing key; MaxAge is
// the token lifetime.
type Config struct {
	Secret []byte
	Issuer string
	MaxAge time.Duration
	Leeway time.Duration
}

// Manager creates and parses session tokens. Safe for concurrent use.
type Manager struct {
	config Config
}

// SessionClaims is the claim set carried by a session token. User is the
// backend-defined payload; its shape is not fixed here.
type SessionClaims struct {
	SessionID string         `json:"sid"`
	User      map[string]any `json:"usr,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if cfg.MaxAge <= 0 {
		return nil, errors.New("invalid MaxAge configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Create signs a session token for the given session ID and user payload.
func (m *Manager) Create(sessionID string, user map[string]any) (string, error) {
	now := time.Now()

	claims := SessionClaims{
		SessionID: sessionID,
		User:      user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectFrom(user),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.MaxAge)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.config.Secret)
	if err != nil {
		return "", err
	}

	return signed, nil
}

// Parse validates raw and returns its claims. The signing method is pinned
// to HS256; anything else is rejected before signature verification.
func (m *Manager) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.config.Secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// MaxAge exposes the configured token lifetime for sliding renewal math.
func (m *Manager) MaxAge() time.Duration {
	return m.config.MaxAge
}

func subjectFrom(user map[string]any) string {
	if user == nil {
		return ""
	}
	if id, ok := user["id"].(string); ok {
		return id
	}
	return ""
}
