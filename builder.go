package authgate

import (
	"errors"
	"log"

	"github.com/mwhitford/authgate/internal/rate"
	"github.com/mwhitford/authgate/jwt"
	"github.com/mwhitford/authgate/provider"
	"github.com/mwhitford/authgate/session"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Handler]. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config    Config
	redis     *redis.Client
	providers []provider.Provider
	auditSink AuditSink
	logger    *log.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSecret sets the signing secret without replacing the rest of the
// configuration.
func (b *Builder) WithSecret(secret string) *Builder {
	b.config.Secret = secret
	return b
}

// WithRedis attaches the Redis client used by the store session strategy
// and the sign-in rate limiter.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithProviders appends providers in the order they should be listed.
func (b *Builder) WithProviders(providers ...provider.Provider) *Builder {
	b.providers = append(b.providers, providers...)
	return b
}

// WithAuditSink sets the audit event destination. Ignored unless
// Config.Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger overrides the destination for handler warnings. Defaults to
// the standard logger.
func (b *Builder) WithLogger(logger *log.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the handler. The builder is
// single-use.
func (b *Builder) Build() (*Handler, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(b.providers) == 0 {
		return nil, errors.New("at least one provider required")
	}

	if b.redis == nil {
		if cfg.Session.Strategy == StrategyStore {
			return nil, errors.New("store session strategy requires redis client")
		}
		if cfg.RateLimit.Enabled {
			return nil, errors.New("sign-in rate limiting requires redis client")
		}
	}

	// -------- PROVIDER REGISTRY --------
	registry := provider.NewRegistry()
	for _, p := range b.providers {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	registry.Freeze()

	h := &Handler{
		config:    cfg,
		providers: registry,
		csrf:      newCSRFManager([]byte(cfg.Secret)),
		metrics:   NewMetrics(cfg.Metrics),
		logger:    b.logger,
	}
	if h.logger == nil {
		h.logger = log.Default()
	}

	// -------- SESSION BACKEND --------
	switch cfg.Session.Strategy {
	case StrategyJWT:
		manager, err := jwt.NewManager(jwt.Config{
			Secret: []byte(cfg.Secret),
			Issuer: cfg.Session.Issuer,
			MaxAge: cfg.Session.MaxAge,
		})
		if err != nil {
			return nil, err
		}
		h.tokens = manager
	case StrategyStore:
		h.sessions = session.NewStore(
			b.redis,
			cfg.Session.RedisPrefix,
			cfg.Session.JitterEnabled,
			cfg.Session.JitterRange,
		)
	}

	// -------- RATE LIMITER --------
	if cfg.RateLimit.Enabled {
		h.limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:  cfg.RateLimit.EnableIPThrottle,
			MaxSignInAttempts: cfg.RateLimit.MaxSignInAttempts,
			SignInCooldown:    cfg.RateLimit.SignInCooldown,
		})
	}

	// -------- AUDIT --------
	h.audit = newAuditDispatcher(cfg.Audit, b.auditSink)

	b.built = true
	return h, nil
}
