package authgate

import "errors"

var (
	// ErrInvalidCredentials is returned when a credentials provider rejects
	// the submitted credential map.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProviderNotFound is returned when a sign-in names an unregistered
	// provider.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrCSRFTokenInvalid is returned when the double-submit check fails.
	ErrCSRFTokenInvalid = errors.New("csrf token invalid")
	// ErrSessionNotFound is returned when no session backs the request.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the session exists but is past
	// its absolute expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrSignInRateLimited is returned when the identifier or IP has
	// exhausted its sign-in attempt budget.
	ErrSignInRateLimited = errors.New("sign-in rate limited")
	// ErrSignInRejected is returned when the SignIn callback vetoes an
	// otherwise valid sign-in.
	ErrSignInRejected = errors.New("sign-in rejected by callback")
	// ErrOAuthExchangeUnavailable is returned when an OAuth callback
	// arrives for a provider without an Exchange callback.
	ErrOAuthExchangeUnavailable = errors.New("oauth code exchange not configured")
	// ErrHandlerNotReady is returned when a Handler method is called on a
	// nil or unbuilt handler.
	ErrHandlerNotReady = errors.New("handler not initialized")
)

// Wire error codes carried by error-page redirects (?error=<code>) and by
// JSON error responses. Clients key their failure semantics off these, so
// the strings are part of the public contract.
const (
	// ErrorCodeCredentialsSignin: the credentials provider returned the
	// absence marker (nil profile).
	ErrorCodeCredentialsSignin = "CredentialsSignin"
	// ErrorCodeAccessDenied: the SignIn callback vetoed the sign-in.
	ErrorCodeAccessDenied = "AccessDenied"
	// ErrorCodeOAuthSignin: building the authorization redirect failed.
	ErrorCodeOAuthSignin = "OAuthSignin"
	// ErrorCodeOAuthCallback: state mismatch or missing code exchange on
	// the OAuth return leg.
	ErrorCodeOAuthCallback = "OAuthCallback"
	// ErrorCodeCSRFMismatch: anti-forgery verification failed.
	ErrorCodeCSRFMismatch = "CSRFMismatch"
	// ErrorCodeSigninThrottled: sign-in attempt budget exhausted.
	ErrorCodeSigninThrottled = "SigninThrottled"
	// ErrorCodeConfiguration: unknown provider or server-side miswiring.
	ErrorCodeConfiguration = "Configuration"
	// ErrorCodeSessionRequired: a required session was absent.
	ErrorCodeSessionRequired = "SessionRequired"
)
