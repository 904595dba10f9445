package authgate

import (
	"context"
	"time"
)

const (
	auditEventSignInSuccess        = "signin_success"
	auditEventSignInFailure        = "signin_failure"
	auditEventSignInRateLimited    = "signin_rate_limited"
	auditEventSignOut              = "signout"
	auditEventSessionRefreshed     = "session_refreshed"
	auditEventSessionExpired       = "session_expired"
	auditEventCSRFRejected         = "csrf_rejected"
	auditEventOAuthRedirect        = "oauth_redirect"
	auditEventOAuthCallbackFailure = "oauth_callback_failure"
)

// emitAudit builds and dispatches one audit event. metadata is a lazy
// constructor so callers pay for the map only when auditing is on.
func (h *Handler) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID, providerID, sessionID string,
	err error,
	metadata func() map[string]string,
) {
	if h == nil || h.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  time.Now(),
		EventType:  eventType,
		ProviderID: providerID,
		UserID:     userID,
		SessionID:  sessionID,
		IP:         clientIPFromContext(ctx),
		Success:    success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["user_agent"] = ua
	}

	h.audit.Emit(ctx, event)
}
