package auth

import "context"

// Provider is the identity provider the gateway authenticates against.
type Provider interface {
	Name() string

	// AuthCodeURL builds the authorize redirect for state and the gateway
	// callback at redirectURL.
	AuthCodeURL(state, redirectURL string) string

	// Exchange trades a one-time code for an access token. It fails with a
	// *ProviderError or an error wrapping ErrProtocol and never retries.
	Exchange(ctx context.Context, code, redirectURL string) (string, error)

	Resolver
}

// Resolver looks up who holds an access token and whether they belong to the
// configured organization. A nil Identity means the token is not usable.
type Resolver interface {
	Resolve(ctx context.Context, accessToken string) (*Identity, error)
}
