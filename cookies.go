package authgate

import (
	"net/http"
	"time"
)

// Cookie name prefixes per the cookie-prefix spec: __Secure- requires the
// Secure attribute, __Host- additionally pins Path=/ and forbids Domain.
const (
	securePrefix = "__Secure-"
	hostPrefix   = "__Host-"
)

func (h *Handler) sessionCookieName() string {
	if h.config.Cookies.Secure {
		return securePrefix + h.config.Cookies.SessionName
	}
	return h.config.Cookies.SessionName
}

func (h *Handler) csrfCookieName() string {
	if h.config.Cookies.Secure {
		return hostPrefix + h.config.Cookies.CSRFName
	}
	return h.config.Cookies.CSRFName
}

func (h *Handler) callbackURLCookieName() string {
	return h.config.Cookies.CallbackURLName
}

func (h *Handler) stateCookieName() string {
	return h.config.Cookies.StateName
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, value string, maxAge time.Duration) {
	c := &http.Cookie{
		Name:     h.sessionCookieName(),
		Value:    value,
		Path:     h.config.Cookies.Path,
		Domain:   h.config.Cookies.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   h.config.Cookies.Secure,
		SameSite: h.config.Cookies.SameSite,
	}
	http.SetCookie(w, c)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionCookieName(),
		Value:    "",
		Path:     h.config.Cookies.Path,
		Domain:   h.config.Cookies.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Cookies.Secure,
		SameSite: h.config.Cookies.SameSite,
	})
}

func (h *Handler) setCSRFCookie(w http.ResponseWriter, value string) {
	c := &http.Cookie{
		Name:     h.csrfCookieName(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.Cookies.Secure,
		SameSite: h.config.Cookies.SameSite,
	}
	// __Host- cookies must not set Domain.
	if !h.config.Cookies.Secure {
		c.Domain = h.config.Cookies.Domain
	}
	http.SetCookie(w, c)
}

// setTransientCookie covers the short-lived callback-url and state cookies
// used across the OAuth redirect leg.
func (h *Handler) setTransientCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.config.Cookies.Path,
		MaxAge:   int(15 * time.Minute / time.Second),
		HttpOnly: true,
		Secure:   h.config.Cookies.Secure,
		SameSite: h.config.Cookies.SameSite,
	})
}

func (h *Handler) clearTransientCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.config.Cookies.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.Cookies.Secure,
		SameSite: h.config.Cookies.SameSite,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
