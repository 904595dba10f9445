package provider

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// OAuth configures an external authorization server. The handler builds the
// authorization redirect from this configuration; the code exchange itself
// is delegated to the Exchange callback so provider-specific token handling
// stays outside this module.
type OAuth struct {
	ProviderID   string
	ProviderName string

	ClientID     string
	ClientSecret string

	// AuthorizationURL is the authorization endpoint users are redirected
	// to. Required.
	AuthorizationURL string
	// TokenURL is included in the provider listing for callers that run
	// the exchange themselves.
	TokenURL string
	Scopes   []string

	// Exchange turns an authorization code into a user profile. When nil,
	// sign-in completions against this provider fail with an OAuthCallback
	// error.
	Exchange func(ctx context.Context, code, redirectURI string) (map[string]any, error)
}

func (o *OAuth) ID() string {
	return o.ProviderID
}

func (o *OAuth) Name() string {
	if o.ProviderName == "" {
		return o.ProviderID
	}
	return o.ProviderName
}

func (o *OAuth) Type() Type {
	return TypeOAuth
}

// AuthCodeURL builds the authorization redirect for the given state and
// redirect URI.
func (o *OAuth) AuthCodeURL(state, redirectURI string) (string, error) {
	if o.AuthorizationURL == "" {
		return "", errors.New("oauth provider missing authorization URL")
	}

	u, err := url.Parse(o.AuthorizationURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", o.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	if len(o.Scopes) > 0 {
		q.Set("scope", strings.Join(o.Scopes, " "))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
