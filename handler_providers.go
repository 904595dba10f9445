package authgate

import (
	"net/http"

	"github.com/mwhitford/authgate/provider"
)

// serveProviders returns the configured provider collection keyed by ID.
// Read-only; no session state is touched.
func (h *Handler) serveProviders(w http.ResponseWriter, r *http.Request) {
	base := origin(r) + h.config.BasePath

	out := make(map[string]ProviderInfo, h.providers.Len())
	for _, p := range h.providers.List() {
		info := ProviderInfo{
			ID:          p.ID(),
			Name:        p.Name(),
			Type:        string(p.Type()),
			SignInURL:   base + "/signin/" + p.ID(),
			CallbackURL: base + "/callback/" + p.ID(),
		}
		if creds, ok := p.(*provider.Credentials); ok {
			info.Fields = creds.Fields
		}
		out[p.ID()] = info
	}

	h.metricInc(MetricProvidersListed)
	writeJSON(w, http.StatusOK, out)
}
