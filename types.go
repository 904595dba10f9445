package authgate

import (
	"io"
	"time"

	"github.com/mwhitford/authgate/internal/audit"
	"github.com/mwhitford/authgate/provider"
)

// Profile is the backend-defined user payload produced by a provider. The
// key set is owned by the integration; only "id" and "name" have helper
// accessors.
type Profile map[string]any

// ID returns the "id" entry when it is a string.
func (p Profile) ID() string {
	id, _ := p["id"].(string)
	return id
}

// Name returns the "name" entry when it is a string.
func (p Profile) Name() string {
	name, _ := p["name"].(string)
	return name
}

// SessionPayload is the wire shape of GET {base}/session. An unauthenticated
// request yields the zero value, which marshals to {}.
type SessionPayload struct {
	User    Profile   `json:"user,omitempty"`
	Expires time.Time `json:"expires,omitzero"`
}

// Authenticated reports whether the payload carries a non-empty user.
// This is the single invariant tying status to data: a session is
// authenticated if and only if User is present and non-empty.
func (sp SessionPayload) Authenticated() bool {
	return len(sp.User) > 0
}

// ProviderInfo is one entry of the GET {base}/providers response.
type ProviderInfo struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	SignInURL   string           `json:"signinUrl"`
	CallbackURL string           `json:"callbackUrl"`
	Fields      []provider.Field `json:"credentials,omitempty"`
}

// SignInResponse is the JSON body returned by sign-in and sign-out when the
// caller asks for JSON instead of a redirect. Token is set only for the JWT
// session strategy on successful sign-in.
type SignInResponse struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

// AuditEvent is a structured audit record emitted by the handler.
type AuditEvent = audit.Event

// AuditSink receives [AuditEvent] values from the handler's audit
// dispatcher.
type AuditSink = audit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = audit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = audit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
