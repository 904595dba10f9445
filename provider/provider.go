package provider

// Type discriminates the built-in provider kinds.
type Type string

const (
	// TypeCredentials is a provider validating a submitted credential map.
	TypeCredentials Type = "credentials"
	// TypeOAuth is a provider delegating to an external authorization
	// server.
	TypeOAuth Type = "oauth"
)

// Provider is a configured identity source usable for sign-in.
type Provider interface {
	ID() string
	Name() string
	Type() Type
}
