package provider

import "context"

// Field describes one input of a credentials sign-in form. The handler
// exposes fields through the provider listing so UIs can render the form
// without hardcoding it.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}

// Credentials validates a submitted credential map through the Authorize
// callback. Returning a nil profile with a nil error is the rejection
// signal: the handler treats it as invalid credentials, not as a backend
// failure.
type Credentials struct {
	// ProviderID defaults to "credentials" when empty.
	ProviderID string
	// ProviderName defaults to "Credentials" when empty.
	ProviderName string
	// Fields is the ordered form description. Optional.
	Fields []Field
	// IdentifierField names the credential used for rate-limit accounting.
	// Defaults to the first field name, then to "username".
	IdentifierField string
	// Authorize is required. It receives the submitted credentials and
	// returns the user profile, nil for a rejection, or an error for a
	// backend failure.
	Authorize func(ctx context.Context, credentials map[string]string) (map[string]any, error)
}

func (c *Credentials) ID() string {
	if c.ProviderID == "" {
		return "credentials"
	}
	return c.ProviderID
}

func (c *Credentials) Name() string {
	if c.ProviderName == "" {
		return "Credentials"
	}
	return c.ProviderName
}

func (c *Credentials) Type() Type {
	return TypeCredentials
}

// Identifier extracts the rate-limit identifier from a submitted
// credential map.
func (c *Credentials) Identifier(credentials map[string]string) string {
	field := c.IdentifierField
	if field == "" && len(c.Fields) > 0 {
		field = c.Fields[0].Name
	}
	if field == "" {
		field = "username"
	}
	return credentials[field]
}
