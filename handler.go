package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mwhitford/authgate/internal/rate"
	"github.com/mwhitford/authgate/jwt"
	"github.com/mwhitford/authgate/provider"
	"github.com/mwhitford/authgate/session"
)

// Handler is the authentication surface: an http.Handler serving every
// action under Config.BasePath. Build one through [Builder.Build]; all
// methods are safe for concurrent use afterwards.
type Handler struct {
	config    Config
	providers *provider.Registry
	sessions  *session.Store // store strategy only
	tokens    *jwt.Manager   // jwt strategy only
	csrf      *csrfManager
	limiter   *rate.Limiter // nil when rate limiting is off
	audit     *auditDispatcher
	metrics   *Metrics
	logger    *log.Logger
}

// Close flushes the audit dispatcher. Safe on nil.
func (h *Handler) Close() {
	if h == nil {
		return
	}
	if h.audit != nil {
		h.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped by the
// dispatcher under backpressure.
func (h *Handler) AuditDropped() uint64 {
	if h == nil || h.audit == nil {
		return 0
	}
	return h.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all counters.
func (h *Handler) MetricsSnapshot() MetricsSnapshot {
	if h == nil || h.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return h.metrics.Snapshot()
}

func (h *Handler) metricInc(id MetricID) {
	if h == nil || h.metrics == nil {
		return
	}
	h.metrics.Inc(id)
}

// BasePath returns the configured mount point.
func (h *Handler) BasePath() string {
	return h.config.BasePath
}

// ServeHTTP routes actions under BasePath:
//
//	GET  {base}/session            current session payload
//	GET  {base}/providers          configured provider listing
//	GET  {base}/csrf               anti-forgery token
//	GET  {base}/signin             provider listing (sign-in page data)
//	POST {base}/signin/{provider}  start a sign-in
//	GET  {base}/callback/{provider} OAuth return leg
//	POST {base}/callback/{provider} credentials alias of signin
//	POST {base}/signout            destroy the session
//	GET  {base}/error              error code echo for default redirects
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.NotFound(w, r)
		return
	}

	action, ok := h.action(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	ctx := WithClientIP(r.Context(), clientIP(r))
	ctx = WithUserAgent(ctx, r.UserAgent())
	r = r.WithContext(ctx)

	name, rest, _ := strings.Cut(action, "/")
	switch name {
	case "session":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.serveSession(w, r)
	case "providers":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.serveProviders(w, r)
	case "csrf":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.serveCSRF(w, r)
	case "signin":
		if rest == "" {
			if !requireMethod(w, r, http.MethodGet) {
				return
			}
			h.serveProviders(w, r)
			return
		}
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.serveSignIn(w, r, rest)
	case "callback":
		if rest == "" {
			http.NotFound(w, r)
			return
		}
		h.serveCallback(w, r, rest)
	case "signout":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.serveSignOut(w, r)
	case "error":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.serveError(w, r)
	default:
		http.NotFound(w, r)
	}
}

// action extracts the route below BasePath, or reports false when the path
// is outside it.
func (h *Handler) action(path string) (string, bool) {
	base := h.config.BasePath
	if !strings.HasPrefix(path, base) {
		return "", false
	}
	rest := strings.TrimPrefix(path, base)
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return strings.Trim(rest, "/"), true
}

/*
====================================
SESSION RESOLUTION
====================================
*/

// resolvedSession is the internal view of a live session backing a request.
type resolvedSession struct {
	payload   SessionPayload
	sessionID string
	record    *session.Record // store strategy
	claims    *jwt.SessionClaims
	bearer    bool
}

// SessionFromRequest resolves the session backing r from the session
// cookie or an Authorization bearer token (JWT strategy). It returns
// ErrSessionNotFound when nothing backs the request and ErrSessionExpired
// when the backing session is past its expiry.
func (h *Handler) SessionFromRequest(r *http.Request) (SessionPayload, error) {
	if h == nil {
		return SessionPayload{}, ErrHandlerNotReady
	}
	resolved, err := h.resolve(r)
	if err != nil {
		return SessionPayload{}, err
	}
	return resolved.payload, nil
}

func (h *Handler) resolve(r *http.Request) (*resolvedSession, error) {
	raw := cookieValue(r, h.sessionCookieName())
	bearer := false
	if raw == "" && h.tokens != nil {
		raw = bearerToken(r.Header.Get("Authorization"))
		bearer = raw != ""
	}
	if raw == "" {
		return nil, ErrSessionNotFound
	}

	switch h.config.Session.Strategy {
	case StrategyJWT:
		claims, err := h.tokens.Parse(raw)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrSessionExpired
			}
			return nil, ErrSessionNotFound
		}
		return &resolvedSession{
			payload: SessionPayload{
				User:    Profile(claims.User),
				Expires: claims.ExpiresAt.Time,
			},
			sessionID: claims.SessionID,
			claims:    claims,
			bearer:    bearer,
		}, nil
	case StrategyStore:
		rec, err := h.sessions.Get(r.Context(), raw)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrExpired):
				return nil, ErrSessionExpired
			case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrCorrupt):
				return nil, ErrSessionNotFound
			}
			return nil, err
		}
		return &resolvedSession{
			payload: SessionPayload{
				User:    Profile(rec.User),
				Expires: rec.ExpiresAt,
			},
			sessionID: rec.ID,
			record:    rec,
		}, nil
	}

	return nil, ErrHandlerNotReady
}

/*
====================================
RESPONSE HELPERS
====================================
*/

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// wantsJSON reports whether the caller asked for the JSON contract instead
// of browser redirects.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Auth-Return-Redirect") == "1" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func statusForErrorCode(code string) int {
	switch code {
	case ErrorCodeCredentialsSignin, ErrorCodeAccessDenied, ErrorCodeSessionRequired:
		return http.StatusUnauthorized
	case ErrorCodeCSRFMismatch:
		return http.StatusForbidden
	case ErrorCodeSigninThrottled:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError surfaces a wire error code: JSON callers get a status plus
// {"url","error"}, browsers get a redirect to the error page.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, code string) {
	target := h.errorPageURL(code)
	if wantsJSON(r) {
		writeJSON(w, statusForErrorCode(code), SignInResponse{URL: target, Error: code})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) errorPageURL(code string) string {
	page := h.config.Pages.Error
	if page == "" {
		page = h.config.BasePath + "/error"
	}
	sep := "?"
	if strings.Contains(page, "?") {
		sep = "&"
	}
	return page + sep + "error=" + url.QueryEscape(code)
}

// serveError echoes the error code for default error-page redirects so a
// deployment without a custom error page still lands somewhere sane.
func (h *Handler) serveError(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("error")
	if code == "" {
		code = "unknown"
	}
	writeJSON(w, http.StatusOK, map[string]string{"error": code})
}

/*
====================================
REDIRECT SAFETY
====================================
*/

// resolveRedirect validates a requested destination. Relative URLs pass;
// absolute URLs must match the request host unless the Redirect callback
// widens the policy. Anything else falls back to the origin root.
func (h *Handler) resolveRedirect(r *http.Request, requested string) string {
	orig := origin(r)

	if cb := h.config.Callbacks.Redirect; cb != nil {
		target, err := cb(r.Context(), requested, orig)
		if err == nil && target != "" {
			return target
		}
		return "/"
	}

	if requested == "" {
		return "/"
	}
	if strings.HasPrefix(requested, "/") && !strings.HasPrefix(requested, "//") {
		return requested
	}

	u, err := url.Parse(requested)
	if err != nil {
		return "/"
	}
	if u.Host == r.Host && (u.Scheme == "http" || u.Scheme == "https") {
		if h.config.Security.ProductionMode && u.Scheme != "https" {
			return "/"
		}
		return requested
	}

	return "/"
}

func origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(value string) string {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return ""
	}
	return value[len(bearer):]
}

// shared by signin/session paths: apply the Session callback shaping.
func (h *Handler) shapePayload(ctx context.Context, payload SessionPayload) (SessionPayload, error) {
	cb := h.config.Callbacks.Session
	if cb == nil || !payload.Authenticated() {
		return payload, nil
	}
	shaped, err := cb(ctx, payload.User)
	if err != nil {
		return SessionPayload{}, err
	}
	payload.User = shaped
	return payload, nil
}

// sessionTTL is the remaining lifetime used when (re)writing cookies.
func (h *Handler) sessionTTL(expires time.Time) time.Duration {
	ttl := time.Until(expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
