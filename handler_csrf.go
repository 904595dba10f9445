package authgate

import "net/http"

// serveCSRF returns the anti-forgery token for the session, reusing an
// existing valid cookie so a page with multiple forms shares one token.
func (h *Handler) serveCSRF(w http.ResponseWriter, r *http.Request) {
	if existing := cookieValue(r, h.csrfCookieName()); existing != "" {
		if token := h.csrf.tokenFromCookie(existing); token != "" {
			writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
			return
		}
	}

	token, cookie, err := h.csrf.issue()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": ErrorCodeConfiguration})
		return
	}

	h.setCSRFCookie(w, cookie)
	h.metricInc(MetricCSRFIssued)
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
