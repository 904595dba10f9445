package authgate

import "time"

// SecurityReport is a read-only snapshot of the handler's security posture,
// returned by [Handler.SecurityReport]. Useful for startup logging and
// compliance checks.
type SecurityReport struct {
	ProductionMode     bool
	SessionStrategy    SessionStrategy
	SessionMaxAge      time.Duration
	SessionUpdateAge   time.Duration
	SecureCookies      bool
	CSRFProtection     bool
	RateLimitingActive bool
	AuditActive        bool
	ProviderCount      int
}

// SecurityReport summarizes the active configuration.
func (h *Handler) SecurityReport() SecurityReport {
	if h == nil {
		return SecurityReport{}
	}
	return SecurityReport{
		ProductionMode:     h.config.Security.ProductionMode,
		SessionStrategy:    h.config.Session.Strategy,
		SessionMaxAge:      h.config.Session.MaxAge,
		SessionUpdateAge:   h.config.Session.UpdateAge,
		SecureCookies:      h.config.Cookies.Secure,
		CSRFProtection:     true,
		RateLimitingActive: h.limiter != nil,
		AuditActive:        h.audit != nil,
		ProviderCount:      h.providers.Len(),
	}
}
