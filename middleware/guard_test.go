package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mwhitford/authgate"
	"github.com/mwhitford/authgate/provider"
)

func newGuardedHandler(t *testing.T) *authgate.Handler {
	t.Helper()

	creds := &provider.Credentials{
		Authorize: func(ctx context.Context, c map[string]string) (map[string]any, error) {
			if c["username"] == "jsmith" && c["password"] == "hunter2" {
				return map[string]any{"id": "1", "name": "J Smith", "username": "jsmith"}, nil
			}
			return nil, nil
		},
	}

	h, err := authgate.New().
		WithSecret("0123456789abcdef0123456789abcdef").
		WithProviders(creds).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

// establishSession runs the csrf + signin flow and returns the session cookie.
func establishSession(t *testing.T, h *authgate.Handler) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, h.BasePath()+"/csrf", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode csrf: %v", err)
	}
	csrfCookie := rec.Result().Cookies()[0]

	form := url.Values{}
	form.Set("csrfToken", body["csrfToken"])
	form.Set("username", "jsmith")
	form.Set("password", "hunter2")

	req = httptest.NewRequest(http.MethodPost, h.BasePath()+"/signin/credentials",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Auth-Return-Redirect", "1")
	req.AddCookie(csrfCookie)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin returned %d: %s", rec.Code, rec.Body.String())
	}

	for _, c := range rec.Result().Cookies() {
		if strings.Contains(c.Name, "session-token") && c.Value != "" {
			return c
		}
	}
	t.Fatal("expected a session cookie")
	return nil
}

func TestRequireSessionRejectsAnonymous(t *testing.T) {
	h := newGuardedHandler(t)

	protected := RequireSession(h)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), authgate.ErrorCodeSessionRequired) {
		t.Fatalf("expected SessionRequired body, got %s", rec.Body.String())
	}
}

func TestRequireSessionInjectsPayload(t *testing.T) {
	h := newGuardedHandler(t)
	cookie := establishSession(t, h)

	var seen authgate.SessionPayload
	protected := RequireSession(h)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatal("expected a payload in context")
		}
		seen = payload
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen.User.ID() != "1" || seen.User["username"] != "jsmith" {
		t.Fatalf("unexpected payload %+v", seen)
	}
}

func TestSessionFromContextMissing(t *testing.T) {
	if _, ok := SessionFromContext(context.Background()); ok {
		t.Fatal("expected no payload in a bare context")
	}
}
