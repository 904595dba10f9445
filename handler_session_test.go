package authgate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSessionEmptyWithoutCookie(t *testing.T) {
	h := newTestHandler(t, nil)

	rec, body := getSession(t, h, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for no session, got %d", rec.Code)
	}
	if len(body) != 0 {
		t.Fatalf("expected empty object, got %v", body)
	}
}

func TestSessionStaleCookieCleared(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Session.Strategy = StrategyStore
	})

	stale := &http.Cookie{Name: h.sessionCookieName(), Value: "nonexistent-id"}
	rec, body := getSession(t, h, stale)
	if rec.Code != http.StatusOK || len(body) != 0 {
		t.Fatalf("expected empty 200, got %d %v", rec.Code, body)
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == h.sessionCookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected the stale cookie to be cleared")
	}
}

func TestSessionExpiredRecord(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Session.Strategy = StrategyStore
		cfg.Metrics.Enabled = true
	})

	_, cookie := signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	// Force the record past its expiry while keeping the redis key alive.
	ctx := context.Background()
	rec, err := h.sessions.Get(ctx, cookie.Value)
	if err != nil {
		t.Fatalf("fetch record: %v", err)
	}
	rec.ExpiresAt = time.Now().Add(-time.Minute)
	if err := h.sessions.Save(ctx, rec, time.Hour); err != nil {
		t.Fatalf("save record: %v", err)
	}

	resp, body := getSession(t, h, cookie)
	if resp.Code != http.StatusOK || len(body) != 0 {
		t.Fatalf("expected empty 200 for expired session, got %d %v", resp.Code, body)
	}
	if got := h.MetricsSnapshot().Counters[MetricSessionExpired]; got != 1 {
		t.Fatalf("expected one expired-session metric, got %d", got)
	}
}

func TestSessionSlidingRenewalStore(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Session.Strategy = StrategyStore
		cfg.Session.UpdateAge = time.Nanosecond
	})

	_, cookie := signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})
	before, err := h.sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("fetch record: %v", err)
	}

	time.Sleep(2 * time.Millisecond)
	rec, _ := getSession(t, h, cookie)

	after, err := h.sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("fetch renewed record: %v", err)
	}
	if !after.LastRefreshedAt.After(before.LastRefreshedAt) {
		t.Fatal("expected LastRefreshedAt to advance")
	}
	if !after.ExpiresAt.After(before.ExpiresAt) {
		t.Fatal("expected expiry to roll forward")
	}

	refreshed := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == h.sessionCookieName() && c.Value == cookie.Value {
			refreshed = true
		}
	}
	if !refreshed {
		t.Fatal("expected the session cookie to be re-set on renewal")
	}
}

func TestSessionSlidingRenewalJWT(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Session.UpdateAge = time.Nanosecond
	})

	rec, cookie := signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})
	original := decodeSignInResponse(t, rec).Token

	// iat has second resolution; step past it so the re-issued token differs.
	time.Sleep(1100 * time.Millisecond)

	resp, body := getSession(t, h, cookie)
	if _, ok := body["user"]; !ok {
		t.Fatalf("expected an authenticated payload, got %v", body)
	}

	var renewed string
	for _, c := range resp.Result().Cookies() {
		if c.Name == h.sessionCookieName() {
			renewed = c.Value
		}
	}
	if renewed == "" {
		t.Fatal("expected a renewed session cookie")
	}
	if renewed == original {
		t.Fatal("expected a re-issued token on renewal")
	}

	// The renewed expiry must track the token lifetime the manager signs
	// into the re-issued token.
	rawExpires, ok := body["expires"].(string)
	if !ok {
		t.Fatalf("expected an expires field, got %v", body)
	}
	expires, err := time.Parse(time.RFC3339Nano, rawExpires)
	if err != nil {
		t.Fatalf("parse expires: %v", err)
	}
	want := time.Now().Add(h.config.Session.MaxAge)
	if diff := expires.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expected expiry near %v, got %v", want, expires)
	}
}

func TestSessionNoRenewalBeforeUpdateAge(t *testing.T) {
	h := newTestHandler(t, nil) // default UpdateAge 24h

	_, cookie := signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})
	resp, _ := getSession(t, h, cookie)

	for _, c := range resp.Result().Cookies() {
		if c.Name == h.sessionCookieName() {
			t.Fatal("expected no cookie writes before UpdateAge")
		}
	}
}

func TestSessionBearerToken(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Session.UpdateAge = time.Nanosecond
	})

	rec, _ := signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})
	token := decodeSignInResponse(t, rec).Token

	req := httptest.NewRequest(http.MethodGet, h.BasePath()+"/session", nil)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "jsmith") {
		t.Fatalf("expected authenticated payload, got %s", resp.Body.String())
	}

	// Bearer reads never renew, even past UpdateAge.
	for _, c := range resp.Result().Cookies() {
		if c.Name == h.sessionCookieName() {
			t.Fatal("bearer request must not receive a session cookie")
		}
	}
}

func TestSessionCallbackShaping(t *testing.T) {
	h := newTestHandler(t, func(cfg *Config) {
		cfg.Callbacks.Session = func(ctx context.Context, user Profile) (Profile, error) {
			delete(user, "id")
			user["role"] = "member"
			return user, nil
		}
	})

	_, cookie := signIn(t, h, map[string]string{"username": "jsmith", "password": "hunter2"})
	_, body := getSession(t, h, cookie)

	user, ok := body["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", body)
	}
	if _, present := user["id"]; present {
		t.Fatal("expected the session callback to strip id")
	}
	if user["role"] != "member" {
		t.Fatalf("expected shaped role, got %v", user)
	}
}
