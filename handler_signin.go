package authgate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mwhitford/authgate/internal"
	"github.com/mwhitford/authgate/internal/rate"
	"github.com/mwhitford/authgate/provider"
	"github.com/mwhitford/authgate/session"
)

// signInRequest is the decoded body of POST signin/{provider}. Credentials
// holds every submitted field that is not part of the envelope.
type signInRequest struct {
	csrfToken   string
	callbackURL string
	credentials map[string]string
}

func decodeSignInRequest(r *http.Request) (*signInRequest, error) {
	req := &signInRequest{credentials: map[string]string{}}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]any
		if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(&body); err != nil {
			return nil, err
		}
		for key, value := range body {
			s, ok := value.(string)
			if !ok {
				continue
			}
			req.assign(key, s)
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for key := range r.PostForm {
		req.assign(key, r.PostForm.Get(key))
	}
	return req, nil
}

func (req *signInRequest) assign(key, value string) {
	switch key {
	case "csrfToken":
		req.csrfToken = value
	case "callbackUrl":
		req.callbackURL = value
	case "json":
		// envelope flag used by form posts, not a credential
	default:
		req.credentials[key] = value
	}
}

func (h *Handler) serveSignIn(w http.ResponseWriter, r *http.Request, providerID string) {
	req, err := decodeSignInRequest(r)
	if err != nil {
		h.respondError(w, r, ErrorCodeConfiguration)
		return
	}

	if !h.csrf.verify(cookieValue(r, h.csrfCookieName()), req.csrfToken) {
		h.metricInc(MetricCSRFRejected)
		h.emitAudit(r.Context(), auditEventCSRFRejected, false, "", providerID, "", ErrCSRFTokenInvalid, nil)
		h.respondError(w, r, ErrorCodeCSRFMismatch)
		return
	}

	p, ok := h.providers.Get(providerID)
	if !ok {
		h.logger.Printf("authgate: sign-in for unknown provider %q: %v", providerID, ErrProviderNotFound)
		h.emitAudit(r.Context(), auditEventSignInFailure, false, "", providerID, "", ErrProviderNotFound, nil)
		h.respondError(w, r, ErrorCodeConfiguration)
		return
	}

	switch p := p.(type) {
	case *provider.Credentials:
		h.signInCredentials(w, r, p, req)
	case *provider.OAuth:
		h.signInOAuth(w, r, p, req)
	default:
		h.respondError(w, r, ErrorCodeConfiguration)
	}
}

func (h *Handler) signInCredentials(w http.ResponseWriter, r *http.Request, p *provider.Credentials, req *signInRequest) {
	ctx := r.Context()
	ip := clientIPFromContext(ctx)
	identifier := p.Identifier(req.credentials)

	if h.limiter != nil {
		if err := h.limiter.CheckSignIn(ctx, identifier, ip); err != nil {
			h.metricInc(MetricSignInRateLimited)
			h.emitAudit(ctx, auditEventSignInRateLimited, false, "", p.ID(), "", ErrSignInRateLimited, func() map[string]string {
				return map[string]string{"identifier": identifier}
			})
			h.respondError(w, r, ErrorCodeSigninThrottled)
			return
		}
	}

	if p.Authorize == nil {
		h.respondError(w, r, ErrorCodeConfiguration)
		return
	}

	raw, err := p.Authorize(ctx, req.credentials)
	if err != nil {
		h.logger.Printf("authgate: credentials authorize for provider %q failed: %v", p.ID(), err)
		h.metricInc(MetricSignInFailure)
		h.emitAudit(ctx, auditEventSignInFailure, false, "", p.ID(), "", err, nil)
		h.respondError(w, r, ErrorCodeCredentialsSignin)
		return
	}
	if len(raw) == 0 {
		// Absence marker: the provider rejected the credentials.
		h.logger.Printf("authgate: invalid credentials for provider %q identifier %q", p.ID(), identifier)
		if h.limiter != nil {
			if lerr := h.limiter.RecordFailure(ctx, identifier, ip); lerr != nil && lerr != rate.ErrRateLimited {
				h.logger.Printf("authgate: rate limiter record failure: %v", lerr)
			}
		}
		h.metricInc(MetricSignInFailure)
		h.emitAudit(ctx, auditEventSignInFailure, false, "", p.ID(), "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": identifier}
		})
		h.respondError(w, r, ErrorCodeCredentialsSignin)
		return
	}

	h.completeSignIn(w, r, p.ID(), Profile(raw), req.callbackURL, func() {
		if h.limiter != nil {
			if err := h.limiter.Reset(ctx, identifier, ip); err != nil {
				h.logger.Printf("authgate: rate limiter reset: %v", err)
			}
		}
	})
}

// completeSignIn runs the SignIn callback, creates the session, and
// responds with the redirect contract. onSuccess runs after the session is
// established.
func (h *Handler) completeSignIn(w http.ResponseWriter, r *http.Request, providerID string, profile Profile, callbackURL string, onSuccess func()) {
	ctx := r.Context()

	if cb := h.config.Callbacks.SignIn; cb != nil {
		allowed, err := cb(ctx, providerID, profile)
		if err != nil || !allowed {
			h.metricInc(MetricSignInFailure)
			h.emitAudit(ctx, auditEventSignInFailure, false, profile.ID(), providerID, "", ErrSignInRejected, nil)
			h.respondError(w, r, ErrorCodeAccessDenied)
			return
		}
	}

	token, sessionID, err := h.createSession(ctx, w, profile)
	if err != nil {
		h.logger.Printf("authgate: session creation failed: %v", err)
		h.respondError(w, r, ErrorCodeConfiguration)
		return
	}

	if onSuccess != nil {
		onSuccess()
	}

	h.metricInc(MetricSignInSuccess)
	h.metricInc(MetricSessionCreated)
	h.emitAudit(ctx, auditEventSignInSuccess, true, profile.ID(), providerID, sessionID, nil, nil)

	target := h.resolveRedirect(r, callbackURL)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, SignInResponse{URL: target, Token: token})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// createSession materializes the session for profile and sets the cookie.
// The returned token is non-empty only for the JWT strategy.
func (h *Handler) createSession(ctx context.Context, w http.ResponseWriter, profile Profile) (token, sessionID string, err error) {
	sessionID = session.NewID()
	maxAge := h.config.Session.MaxAge

	switch h.config.Session.Strategy {
	case StrategyJWT:
		shaped := profile
		if cb := h.config.Callbacks.JWT; cb != nil {
			shaped, err = cb(ctx, profile)
			if err != nil {
				return "", "", err
			}
		}
		token, err = h.tokens.Create(sessionID, shaped)
		if err != nil {
			return "", "", err
		}
		h.setSessionCookie(w, token, maxAge)
		return token, sessionID, nil

	case StrategyStore:
		now := time.Now()
		rec := &session.Record{
			ID:              sessionID,
			UserID:          profile.ID(),
			User:            profile,
			CreatedAt:       now,
			ExpiresAt:       now.Add(maxAge),
			LastRefreshedAt: now,
		}
		if err = h.sessions.Save(ctx, rec, maxAge); err != nil {
			return "", "", err
		}
		h.setSessionCookie(w, sessionID, maxAge)
		return "", sessionID, nil
	}

	return "", "", fmt.Errorf("unknown session strategy %d", h.config.Session.Strategy)
}

/*
====================================
OAUTH AUTHORIZATION LEG
====================================
*/

func (h *Handler) signInOAuth(w http.ResponseWriter, r *http.Request, p *provider.OAuth, req *signInRequest) {
	state, err := internal.NewStateToken()
	if err != nil {
		h.respondError(w, r, ErrorCodeOAuthSignin)
		return
	}

	redirectURI := origin(r) + h.config.BasePath + "/callback/" + p.ID()
	target, err := p.AuthCodeURL(state, redirectURI)
	if err != nil {
		h.logger.Printf("authgate: authorization URL for provider %q: %v", p.ID(), err)
		h.respondError(w, r, ErrorCodeOAuthSignin)
		return
	}

	h.setTransientCookie(w, h.stateCookieName(), state)
	if req.callbackURL != "" {
		h.setTransientCookie(w, h.callbackURLCookieName(), h.resolveRedirect(r, req.callbackURL))
	}

	h.metricInc(MetricOAuthRedirect)
	h.emitAudit(r.Context(), auditEventOAuthRedirect, true, "", p.ID(), "", nil, nil)

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, SignInResponse{URL: target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
