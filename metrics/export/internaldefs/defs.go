package internaldefs

import (
	authgate "github.com/mwhitford/authgate"
)

// CounterDef pairs a counter ID with its exported metric name and help text.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order. Both exporters
// iterate this slice so their output stays name-for-name identical.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricSignInSuccess, Name: "authgate_signin_success_total", Help: "Completed sign-ins."},
	{ID: authgate.MetricSignInFailure, Name: "authgate_signin_failure_total", Help: "Rejected or failed sign-ins."},
	{ID: authgate.MetricSignInRateLimited, Name: "authgate_signin_rate_limited_total", Help: "Sign-ins refused by the throttle."},
	{ID: authgate.MetricCSRFIssued, Name: "authgate_csrf_issued_total", Help: "Anti-forgery tokens handed out."},
	{ID: authgate.MetricCSRFRejected, Name: "authgate_csrf_rejected_total", Help: "Failed double-submit checks."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Sessions materialized at sign-in."},
	{ID: authgate.MetricSessionRefreshed, Name: "authgate_session_refreshed_total", Help: "Sliding session renewals."},
	{ID: authgate.MetricSessionExpired, Name: "authgate_session_expired_total", Help: "Sessions found expired at read time."},
	{ID: authgate.MetricSignOut, Name: "authgate_signout_total", Help: "Sign-outs."},
	{ID: authgate.MetricProvidersListed, Name: "authgate_providers_listed_total", Help: "Provider listing requests."},
	{ID: authgate.MetricOAuthRedirect, Name: "authgate_oauth_redirect_total", Help: "Authorization redirects issued."},
	{ID: authgate.MetricOAuthCallbackFailure, Name: "authgate_oauth_callback_failure_total", Help: "Failed OAuth return legs."},
}
