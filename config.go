package authgate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mwhitford/authgate/internal"
)

// SessionStrategy selects how server sessions are materialized.
type SessionStrategy int

const (
	// StrategyJWT stores the whole session in an HMAC-signed token; no
	// server-side state.
	StrategyJWT SessionStrategy = iota
	// StrategyStore stores an opaque session ID in the cookie and the
	// record in Redis.
	StrategyStore
)

func (s SessionStrategy) String() string {
	switch s {
	case StrategyJWT:
		return "jwt"
	case StrategyStore:
		return "store"
	default:
		return "unknown"
	}
}

// Config is the full handler configuration. Instances are cloned at Build
// and treated as immutable afterwards.
type Config struct {
	// Secret signs session tokens and CSRF cookies. At least 32 bytes.
	Secret string
	// BasePath is the mount point of the catch-all route. Default
	// "/api/auth".
	BasePath string

	Session   SessionConfig
	Cookies   CookieConfig
	Pages     PagesConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
	Callbacks Callbacks
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls session lifetime and strategy.
type SessionConfig struct {
	Strategy SessionStrategy
	// MaxAge is the absolute session lifetime.
	MaxAge time.Duration
	// UpdateAge is the sliding-renewal threshold: a session older than
	// this (since its last refresh) gets its expiry rolled forward on the
	// next session read. Zero disables sliding renewal.
	UpdateAge time.Duration
	// RedisPrefix namespaces store-strategy keys. Default "ags".
	RedisPrefix string
	// Issuer is stamped into JWT-strategy tokens.
	Issuer string
	// JitterEnabled spreads store-strategy TTLs by up to JitterRange.
	JitterEnabled bool
	JitterRange   time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names and scopes the cookies the handler sets. When Secure
// is active the session cookie gains a __Secure- prefix and the CSRF cookie
// a __Host- prefix.
type CookieConfig struct {
	SessionName     string
	CSRFName        string
	CallbackURLName string
	StateName       string
	Domain          string
	Path            string
	SameSite        http.SameSite
	Secure          bool
}

/*
====================================
PAGES CONFIG
====================================
*/

// PagesConfig overrides the built-in endpoints users are redirected to.
// Empty values fall back to pages served under BasePath.
type PagesConfig struct {
	SignIn  string
	SignOut string
	Error   string
}

// RateLimitConfig throttles sign-in attempts. Requires a Redis client.
type RateLimitConfig struct {
	Enabled           bool
	MaxSignInAttempts int
	SignInCooldown    time.Duration
	EnableIPThrottle  bool
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig gates production hardening.
type SecurityConfig struct {
	// ProductionMode forces secure cookies and rejects plaintext-HTTP
	// redirect targets.
	ProductionMode bool
}

/*
====================================
CALLBACKS
====================================
*/

// Callbacks are the lifecycle extension points. All are optional.
type Callbacks struct {
	// SignIn runs after a provider authenticates but before a session is
	// created. Returning false vetoes the sign-in (AccessDenied).
	SignIn func(ctx context.Context, providerID string, profile Profile) (bool, error)
	// Session shapes the payload returned by the session endpoint.
	Session func(ctx context.Context, profile Profile) (Profile, error)
	// JWT decorates the user payload before a JWT-strategy token is
	// signed.
	JWT func(ctx context.Context, profile Profile) (Profile, error)
	// Redirect overrides the default same-origin destination check. It
	// receives the requested URL and the request origin and returns the
	// URL to navigate to.
	Redirect func(ctx context.Context, requested, origin string) (string, error)
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: JWT strategy, 30-day
// sessions with daily sliding renewal, lax cookies, audit and metrics off.
func DefaultConfig() Config {
	return Config{
		BasePath: "/api/auth",
		Session: SessionConfig{
			Strategy:    StrategyJWT,
			MaxAge:      30 * 24 * time.Hour,
			UpdateAge:   24 * time.Hour,
			RedisPrefix: "ags",
			JitterRange: 30 * time.Second,
		},
		Cookies: CookieConfig{
			SessionName:     "authgate.session-token",
			CSRFName:        "authgate.csrf-token",
			CallbackURLName: "authgate.callback-url",
			StateName:       "authgate.state",
			Path:            "/",
			SameSite:        http.SameSiteLaxMode,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			MaxSignInAttempts: 5,
			SignInCooldown:    15 * time.Minute,
			EnableIPThrottle:  true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
	}
}

func defaultConfig() Config {
	return DefaultConfig()
}

func cloneConfig(cfg Config) Config {
	// Value semantics cover everything except the callback funcs, which
	// are immutable by convention.
	return cfg
}

// Validate checks the configuration for internal consistency. Build calls
// this; it is exported so integrations can fail fast before wiring Redis.
func (c *Config) Validate() error {
	if err := internal.CheckSecret(c.Secret); err != nil {
		return err
	}

	if c.BasePath == "" || !strings.HasPrefix(c.BasePath, "/") {
		return errors.New("BasePath must start with /")
	}
	if strings.HasSuffix(c.BasePath, "/") {
		return errors.New("BasePath must not end with /")
	}

	if c.Session.MaxAge <= 0 {
		return errors.New("Session.MaxAge must be positive")
	}
	if c.Session.UpdateAge < 0 || c.Session.UpdateAge >= c.Session.MaxAge {
		return errors.New("Session.UpdateAge must be in [0, MaxAge)")
	}
	switch c.Session.Strategy {
	case StrategyJWT, StrategyStore:
	default:
		return errors.New("unknown session strategy")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxSignInAttempts <= 0 {
			return errors.New("RateLimit.MaxSignInAttempts must be positive")
		}
		if c.RateLimit.SignInCooldown <= 0 {
			return errors.New("RateLimit.SignInCooldown must be positive")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive")
	}

	if c.Security.ProductionMode && !c.Cookies.Secure {
		return errors.New("ProductionMode requires secure cookies")
	}

	return nil
}
