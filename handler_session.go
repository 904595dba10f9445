package authgate

import (
	"errors"
	"net/http"
	"time"
)

// serveSession returns the current session payload. Unauthenticated
// requests get an empty object with 200, never an error status, so polling
// clients can treat any non-200 as a transport failure. Sliding renewal
// happens here: a session older than UpdateAge (since its last refresh)
// gets its expiry rolled forward.
func (h *Handler) serveSession(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.resolve(r)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired):
			h.metricInc(MetricSessionExpired)
			h.emitAudit(r.Context(), auditEventSessionExpired, false, "", "", "", err, nil)
			h.clearSessionCookie(w)
		case errors.Is(err, ErrSessionNotFound):
			// No session is the normal cold-start case; nothing to clear
			// unless a stale cookie was presented.
			if cookieValue(r, h.sessionCookieName()) != "" {
				h.clearSessionCookie(w)
			}
		default:
			h.logger.Printf("authgate: session resolution failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": ErrorCodeConfiguration})
			return
		}
		writeJSON(w, http.StatusOK, SessionPayload{})
		return
	}

	payload, err := h.shapePayload(r.Context(), resolved.payload)
	if err != nil {
		h.logger.Printf("authgate: session callback failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": ErrorCodeConfiguration})
		return
	}

	if renewed, expires := h.maybeRenew(w, r, resolved); renewed {
		payload.Expires = expires
	}

	writeJSON(w, http.StatusOK, payload)
}

// maybeRenew applies sliding renewal and reports the new expiry when it
// happened. Bearer-token requests are never renewed; the caller owns the
// token lifetime.
func (h *Handler) maybeRenew(w http.ResponseWriter, r *http.Request, resolved *resolvedSession) (bool, time.Time) {
	updateAge := h.config.Session.UpdateAge
	if updateAge <= 0 || resolved.bearer {
		return false, time.Time{}
	}

	now := time.Now()

	switch h.config.Session.Strategy {
	case StrategyJWT:
		issued := resolved.claims.IssuedAt
		if issued == nil || now.Sub(issued.Time) < updateAge {
			return false, time.Time{}
		}
		token, err := h.tokens.Create(resolved.sessionID, resolved.claims.User)
		if err != nil {
			h.logger.Printf("authgate: session renewal failed: %v", err)
			return false, time.Time{}
		}
		// The re-issued token carries the manager's lifetime; the cookie
		// must match it.
		maxAge := h.tokens.MaxAge()
		h.setSessionCookie(w, token, maxAge)
		h.metricInc(MetricSessionRefreshed)
		h.emitAudit(r.Context(), auditEventSessionRefreshed, true, resolved.payload.User.ID(), "", resolved.sessionID, nil, nil)
		return true, now.Add(maxAge)

	case StrategyStore:
		last := resolved.record.LastRefreshedAt
		if last.IsZero() {
			last = resolved.record.CreatedAt
		}
		if now.Sub(last) < updateAge {
			return false, time.Time{}
		}
		maxAge := h.config.Session.MaxAge
		if err := h.sessions.Touch(r.Context(), resolved.record, maxAge); err != nil {
			h.logger.Printf("authgate: session renewal failed: %v", err)
			return false, time.Time{}
		}
		h.setSessionCookie(w, resolved.sessionID, maxAge)
		h.metricInc(MetricSessionRefreshed)
		h.emitAudit(r.Context(), auditEventSessionRefreshed, true, resolved.record.UserID, "", resolved.sessionID, nil, nil)
		return true, resolved.record.ExpiresAt
	}

	return false, time.Time{}
}
