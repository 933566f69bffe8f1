package provider

import (
	"context"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth"
)

// OAuthProvider defines the contract every external auth provider
// must implement. Implementations return identity facts and raw claim
// sets only and must not perform record creation, linking, or session
// management.
type OAuthProvider interface {
	// Name returns the provider identifier (e.g. "google", "auth0").
	Name() string

	// AuthCodeURL returns the OAuth authorization URL.
	// State and PKCE parameters are provided by the caller.
	AuthCodeURL(state string, codeChallenge string) string

	// ExchangeCode exchanges the authorization code for provider
	// credentials and returns the normalized callback payload. No auth
	// decisions are made here.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.Callback, error)
}
