package authgate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mwhitford/authgate/provider"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

// jsmithProvider authenticates exactly one account, jsmith / hunter2, and
// returns nil (absence marker) for everything else.
func jsmithProvider() *provider.Credentials {
	return &provider.Credentials{
		ProviderID:   "credentials",
		ProviderName: "Credentials",
		Fields: []provider.Field{
			{Name: "username", Label: "Username", Type: "text"},
			{Name: "password", Label: "Password", Type: "password"},
		},
		Authorize: func(ctx context.Context, creds map[string]string) (map[string]any, error) {
			if creds["username"] == "jsmith" && creds["password"] == "hunter2" {
				return map[string]any{"id": "1", "name": "J Smith", "username": "jsmith"}, nil
			}
			return nil, nil
		},
	}
}

func newTestHandler(t *testing.T, mutate func(*Config)) *Handler {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Secret = testSecret
	if mutate != nil {
		mutate(&cfg)
	}

	b := New().WithConfig(cfg).WithProviders(jsmithProvider())
	if cfg.Session.Strategy == StrategyStore || cfg.RateLimit.Enabled {
		_, rdb := newTestRedis(t)
		b.WithRedis(rdb)
	}

	h, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

// fetchCSRF hits the csrf endpoint and returns the token plus the cookie to
// replay on the follow-up request.
func fetchCSRF(t *testing.T, h *Handler) (token string, cookie *http.Cookie) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, h.BasePath()+"/csrf", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("csrf endpoint returned %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode csrf body: %v", err)
	}
	token = body["csrfToken"]
	if token == "" {
		t.Fatal("expected a csrf token")
	}

	for _, c := range rec.Result().Cookies() {
		if strings.Contains(c.Name, "csrf-token") {
			return token, c
		}
	}
	t.Fatal("expected a csrf cookie")
	return "", nil
}

// signIn posts credentials through the JSON contract and returns the
// recorder plus the session cookie, if one was set.
func signIn(t *testing.T, h *Handler, creds map[string]string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()

	token, csrfCookie := fetchCSRF(t, h)

	form := url.Values{}
	form.Set("csrfToken", token)
	for k, v := range creds {
		form.Set(k, v)
	}

	req := httptest.NewRequest(http.MethodPost, h.BasePath()+"/signin/credentials",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Auth-Return-Redirect", "1")
	req.AddCookie(csrfCookie)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if strings.Contains(c.Name, "session-token") && c.Value != "" {
			return rec, c
		}
	}
	return rec, nil
}

func decodeSignInResponse(t *testing.T, rec *httptest.ResponseRecorder) SignInResponse {
	t.Helper()
	var body SignInResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode signin response: %v", err)
	}
	return body
}

// getSession reads the session endpoint with an optional session cookie.
func getSession(t *testing.T, h *Handler, cookie *http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, h.BasePath()+"/session", nil)
	req.Header.Set("Accept", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode session body: %v", err)
	}
	return rec, body
}
