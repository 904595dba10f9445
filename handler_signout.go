package authgate

import (
	"net/http"
)

// serveSignOut destroys the current session. The operation is idempotent:
// signing out without a session still clears the cookie and succeeds,
// because the observable contract is "afterwards, unauthenticated".
func (h *Handler) serveSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeSignInRequest(r)
	if err != nil {
		h.respondError(w, r, ErrorCodeConfiguration)
		return
	}

	if !h.csrf.verify(cookieValue(r, h.csrfCookieName()), req.csrfToken) {
		h.metricInc(MetricCSRFRejected)
		h.emitAudit(ctx, auditEventCSRFRejected, false, "", "", "", ErrCSRFTokenInvalid, nil)
		h.respondError(w, r, ErrorCodeCSRFMismatch)
		return
	}

	resolved, err := h.resolve(r)
	if err == nil && h.config.Session.Strategy == StrategyStore {
		if derr := h.sessions.Delete(ctx, resolved.sessionID); derr != nil {
			h.logger.Printf("authgate: session delete failed: %v", derr)
		}
	}

	h.clearSessionCookie(w)
	h.metricInc(MetricSignOut)

	userID, sessionID := "", ""
	if resolved != nil {
		userID = resolved.payload.User.ID()
		sessionID = resolved.sessionID
	}
	h.emitAudit(ctx, auditEventSignOut, true, userID, "", sessionID, nil, nil)

	target := h.signOutTarget(r, req.callbackURL)
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, SignInResponse{URL: target})
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) signOutTarget(r *http.Request, requested string) string {
	if requested != "" {
		return h.resolveRedirect(r, requested)
	}
	if h.config.Pages.SignOut != "" {
		return h.config.Pages.SignOut
	}
	return "/"
}
