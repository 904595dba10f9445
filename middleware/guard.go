package middleware

import (
	"context"
	"net/http"

	"github.com/mwhitford/authgate"
)

type sessionKey struct{}

// SessionFromContext returns the session payload stored by RequireSession.
func SessionFromContext(ctx context.Context) (authgate.SessionPayload, bool) {
	payload, ok := ctx.Value(sessionKey{}).(authgate.SessionPayload)
	return payload, ok
}

// RequireSession wraps a handler so only requests with an active session
// get through. Everyone else receives 401 with a SessionRequired error
// body. The resolved payload is injected into the request context.
func RequireSession(h *authgate.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := h.SessionFromRequest(r)
			if err != nil || !payload.Authenticated() {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"` + authgate.ErrorCodeSessionRequired + `"}`))
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
