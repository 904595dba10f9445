package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mwhitford/authgate"
)

/* ==================== ERRORS ==================== */

var (
	// ErrSessionRequired is returned by GetSession when Required is set
	// and the backend reports no active session.
	ErrSessionRequired = errors.New("client: session required but none active")

	// ErrNoCSRFToken is returned when the backend's CSRF endpoint answers
	// without a token.
	ErrNoCSRFToken = errors.New("client: backend returned no csrf token")
)

// APIError is a non-success answer from the auth backend. Code carries the
// backend's error code when one was provided (e.g. "CredentialsSignin").
type APIError struct {
	Status int
	Code   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: auth backend error %q (status %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("client: auth backend returned status %d", e.Status)
}

/* ==================== CLIENT ==================== */

// Client talks to an authgate HTTP handler and mirrors the resulting
// session state into a SessionStore.
type Client struct {
	baseURL string
	http    *http.Client
	store   *SessionStore

	mu   sync.Mutex
	csrf string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default cookie-jar client. Callers doing
// bearer-only auth can pass a jarless client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client against baseURL, which must include the auth base
// path, e.g. "https://app.example.com/api/auth".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   NewSessionStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: cookie jar: %w", err)
		}
		c.http = &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return c, nil
}

// Store exposes the session mirror for reads and subscriptions.
func (c *Client) Store() *SessionStore { return c.store }

/* ==================== OPERATIONS ==================== */

// GetCSRFToken fetches (and caches) the double-submit CSRF token. The
// matching cookie lands in the HTTP client's jar.
func (c *Client) GetCSRFToken(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/csrf", nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode}
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("client: decode csrf response: %w", err)
	}
	if body.CSRFToken == "" {
		return "", ErrNoCSRFToken
	}

	c.mu.Lock()
	c.csrf = body.CSRFToken
	c.mu.Unlock()
	return body.CSRFToken, nil
}

// GetProviders returns the backend's provider metadata keyed by provider ID.
func (c *Client) GetProviders(ctx context.Context) (map[string]authgate.ProviderInfo, error) {
	resp, err := c.do(ctx, http.MethodGet, "/providers", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode}
	}

	providers := make(map[string]authgate.ProviderInfo)
	if err := json.NewDecoder(resp.Body).Decode(&providers); err != nil {
		return nil, fmt.Errorf("client: decode providers response: %w", err)
	}
	return providers, nil
}

// GetSessionOptions tunes a GetSession call.
type GetSessionOptions struct {
	// Required makes an absent session an error (ErrSessionRequired)
	// instead of a quiet unauthenticated snapshot.
	Required bool
}

// GetSession asks the backend for the current session and absorbs the
// answer into the store. Any 200 counts as a refresh, even when the body
// is the empty no-session object.
func (c *Client) GetSession(ctx context.Context, opts *GetSessionOptions) (Session, error) {
	c.store.beginLoad()

	resp, err := c.do(ctx, http.MethodGet, "/session", nil, "")
	if err != nil {
		c.store.fail()
		return c.store.Snapshot(), err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.store.fail()
		return c.store.Snapshot(), &APIError{Status: resp.StatusCode}
	}

	var payload struct {
		User map[string]any `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.store.fail()
		return c.store.Snapshot(), fmt.Errorf("client: decode session response: %w", err)
	}

	c.store.absorb(payload.User, time.Now())
	snap := c.store.Snapshot()
	if opts != nil && opts.Required && !snap.Authenticated() {
		return snap, ErrSessionRequired
	}
	return snap, nil
}

// SignInOptions tunes a SignIn call.
type SignInOptions struct {
	// CallbackURL is where the backend should send the user after
	// sign-in. Empty means the backend's default.
	CallbackURL string
}

// SignInResult is the successful outcome of a SignIn call.
type SignInResult struct {
	// URL is the post-sign-in destination resolved by the backend.
	URL string
	// Token is the bearer session token, when the backend issues one.
	Token string
}

// SignIn authenticates against the named provider. On success the store
// transitions to authenticated via a follow-up GetSession; on rejection it
// stays unauthenticated and the returned error carries the backend's code.
func (c *Client) SignIn(ctx context.Context, providerID string, credentials map[string]string, opts *SignInOptions) (*SignInResult, error) {
	c.store.beginLoad()

	csrf, err := c.csrfToken(ctx)
	if err != nil {
		c.store.fail()
		return nil, err
	}

	form := url.Values{}
	form.Set("csrfToken", csrf)
	if opts != nil && opts.CallbackURL != "" {
		form.Set("callbackUrl", opts.CallbackURL)
	}
	for k, v := range credentials {
		form.Set(k, v)
	}

	resp, err := c.do(ctx, http.MethodPost, "/signin/"+url.PathEscape(providerID),
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		c.store.fail()
		return nil, err
	}
	defer resp.Body.Close()

	var body authgate.SignInResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.store.fail()
		return nil, fmt.Errorf("client: decode signin response: %w", err)
	}
	if body.Error != "" || resp.StatusCode >= http.StatusBadRequest {
		c.store.fail()
		return nil, &APIError{Status: resp.StatusCode, Code: body.Error}
	}

	if body.Token != "" {
		c.store.setToken(body.Token)
	}
	if _, err := c.GetSession(ctx, nil); err != nil {
		return nil, err
	}
	return &SignInResult{URL: body.URL, Token: body.Token}, nil
}

// SignOutOptions tunes a SignOut call.
type SignOutOptions struct {
	// CallbackURL is where the backend should send the user afterwards.
	CallbackURL string
}

// SignOut ends the backend session. The local store is cleared even when
// the request fails, so the process never keeps acting signed-in against a
// backend it could not reach.
func (c *Client) SignOut(ctx context.Context, opts *SignOutOptions) (string, error) {
	defer c.store.clear()

	csrf, err := c.csrfToken(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("csrfToken", csrf)
	if opts != nil && opts.CallbackURL != "" {
		form.Set("callbackUrl", opts.CallbackURL)
	}

	resp, err := c.do(ctx, http.MethodPost, "/signout",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return "", &APIError{Status: resp.StatusCode}
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("client: decode signout response: %w", err)
	}
	return body.URL, nil
}

/* ==================== INTERNAL ==================== */

// csrfToken returns the cached token or fetches a fresh one.
func (c *Client) csrfToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	cached := c.csrf
	c.mu.Unlock()
	if cached != "" {
		return cached, nil
	}
	return c.GetCSRFToken(ctx)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Auth-Return-Redirect", "1")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.store.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	return resp, nil
}
