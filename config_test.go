package authgate

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.Secret = "short" }, "secret"},
		{"empty base path", func(c *Config) { c.BasePath = "" }, "BasePath"},
		{"relative base path", func(c *Config) { c.BasePath = "api/auth" }, "BasePath"},
		{"trailing slash", func(c *Config) { c.BasePath = "/api/auth/" }, "BasePath"},
		{"zero max age", func(c *Config) { c.Session.MaxAge = 0 }, "MaxAge"},
		{"update age past max age", func(c *Config) { c.Session.UpdateAge = c.Session.MaxAge }, "UpdateAge"},
		{"negative update age", func(c *Config) { c.Session.UpdateAge = -time.Hour }, "UpdateAge"},
		{"rate limit without attempts", func(c *Config) {
			c.RateLimit.Enabled = true
			c.RateLimit.MaxSignInAttempts = 0
		}, "MaxSignInAttempts"},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, "BufferSize"},
		{"production without secure cookies", func(c *Config) {
			c.Security.ProductionMode = true
			c.Cookies.Secure = false
		}, "secure"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Secret = testSecret
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with a secret should validate, got %v", err)
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithSecret(testSecret).WithProviders(jsmithProvider())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("expected the second Build to fail")
	}
}

func TestBuilderRequiresProvider(t *testing.T) {
	if _, err := New().WithSecret(testSecret).Build(); err == nil {
		t.Fatal("expected Build to fail without providers")
	}
}

func TestBuilderStoreStrategyRequiresRedis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	cfg.Session.Strategy = StrategyStore

	_, err := New().WithConfig(cfg).WithProviders(jsmithProvider()).Build()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected a redis requirement error, got %v", err)
	}
}

func TestBuilderRateLimitRequiresRedis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secret = testSecret
	cfg.RateLimit.Enabled = true

	_, err := New().WithConfig(cfg).WithProviders(jsmithProvider()).Build()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected a redis requirement error, got %v", err)
	}
}

func TestBuilderRejectsDuplicateProviders(t *testing.T) {
	_, err := New().
		WithSecret(testSecret).
		WithProviders(jsmithProvider(), jsmithProvider()).
		Build()
	if err == nil {
		t.Fatal("expected duplicate provider ids to fail Build")
	}
}

func TestSecureCookiePrefixes(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Cookies.Secure = true
	})

	if !strings.HasPrefix(h.sessionCookieName(), "__Secure-") {
		t.Fatalf("expected __Secure- session cookie, got %q", h.sessionCookieName())
	}
	if !strings.HasPrefix(h.csrfCookieName(), "__Host-") {
		t.Fatalf("expected __Host- csrf cookie, got %q", h.csrfCookieName())
	}
}

func TestBasePathScoping(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.BasePath = "/auth"
	})

	if _, ok := h.action("/auth/session"); !ok {
		t.Fatal("expected /auth/session to be in scope")
	}
	if _, ok := h.action("/api/session"); ok {
		t.Fatal("expected /api/session to be out of scope")
	}
	if _, ok := h.action("/authx/session"); ok {
		t.Fatal("expected a prefix collision to be out of scope")
	}

	if action, _ := h.action("/auth/signin/credentials"); action != "signin/credentials" {
		t.Fatalf("unexpected action %q", action)
	}
}

func TestMethodGuards(t *testing.T) {
	h := newTestHandler(t, nil)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/session"},
		{http.MethodPost, "/providers"},
		{http.MethodPost, "/csrf"},
		{http.MethodGet, "/signout"},
		{http.MethodGet, "/signin/credentials"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, h.BasePath()+tc.path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s %s: expected 405, got %d", tc.method, tc.path, rec.Code)
		}
	}
}
