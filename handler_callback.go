package authgate

import (
	"crypto/subtle"
	"net/http"

	"github.com/mwhitford/authgate/provider"
)

// serveCallback handles the provider return leg. Credentials posts are an
// alias of signin so form actions can target either endpoint; OAuth GETs
// verify the state cookie and run the provider's Exchange callback.
func (h *Handler) serveCallback(w http.ResponseWriter, r *http.Request, providerID string) {
	p, ok := h.providers.Get(providerID)
	if !ok {
		h.respondError(w, r, ErrorCodeConfiguration)
		return
	}

	switch p := p.(type) {
	case *provider.Credentials:
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		h.serveSignIn(w, r, providerID)
	case *provider.OAuth:
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		h.oauthCallback(w, r, p)
	default:
		h.respondError(w, r, ErrorCodeConfiguration)
	}
}

func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request, p *provider.OAuth) {
	ctx := r.Context()

	state := r.URL.Query().Get("state")
	expected := cookieValue(r, h.stateCookieName())
	h.clearTransientCookie(w, h.stateCookieName())

	if state == "" || expected == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		h.metricInc(MetricOAuthCallbackFailure)
		h.emitAudit(ctx, auditEventOAuthCallbackFailure, false, "", p.ID(), "", ErrCSRFTokenInvalid, func() map[string]string {
			return map[string]string{"reason": "state_mismatch"}
		})
		h.respondError(w, r, ErrorCodeOAuthCallback)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" || p.Exchange == nil {
		h.metricInc(MetricOAuthCallbackFailure)
		h.emitAudit(ctx, auditEventOAuthCallbackFailure, false, "", p.ID(), "", ErrOAuthExchangeUnavailable, nil)
		h.respondError(w, r, ErrorCodeOAuthCallback)
		return
	}

	redirectURI := origin(r) + h.config.BasePath + "/callback/" + p.ID()
	raw, err := p.Exchange(ctx, code, redirectURI)
	if err != nil {
		h.logger.Printf("authgate: oauth exchange for provider %q failed: %v", p.ID(), err)
		h.metricInc(MetricOAuthCallbackFailure)
		h.emitAudit(ctx, auditEventOAuthCallbackFailure, false, "", p.ID(), "", err, nil)
		h.respondError(w, r, ErrorCodeOAuthCallback)
		return
	}
	if len(raw) == 0 {
		h.metricInc(MetricSignInFailure)
		h.emitAudit(ctx, auditEventSignInFailure, false, "", p.ID(), "", ErrInvalidCredentials, nil)
		h.respondError(w, r, ErrorCodeAccessDenied)
		return
	}

	callbackURL := cookieValue(r, h.callbackURLCookieName())
	h.clearTransientCookie(w, h.callbackURLCookieName())

	h.completeSignIn(w, r, p.ID(), Profile(raw), callbackURL, nil)
}
