package auth0

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth"
)

const providerName = "auth0"

// Provider implements OAuth + OIDC authentication against an Auth0 tenant.
// It returns identity facts only; no record or session decisions are made
// here.
type Provider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	connection  string
}

// New initializes an Auth0 OIDC provider using discovery. issuer must be
// the tenant issuer URL, e.g. https://example.us.auth0.com/. connection
// optionally pins the Auth0 connection the login screen offers.
func New(
	ctx context.Context,
	issuer string,
	clientID string,
	clientSecret string,
	redirectURL string,
	connection string,
) (*Provider, error) {

	if issuer == "" || clientID == "" || redirectURL == "" {
		return nil, errors.New("auth0 oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth0 oidc provider: %w", err)
	}

	verifier := oidcProvider.Verifier(&oidc.Config{
		ClientID: clientID,
	})

	oauthCfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}

	return &Provider{
		oauthConfig: oauthCfg,
		verifier:    verifier,
		connection:  connection,
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if p.connection != "" {
		opts = append(opts, oauth2.SetAuthURLParam("connection", p.connection))
	}
	return p.oauthConfig.AuthCodeURL(state, opts...)
}

// ExchangeCode exchanges the authorization code and returns the normalized
// callback payload.
func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Callback, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		log.Error().Err(err).Msg("auth0 token exchange failed")
		return nil, err
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("auth0 did not return id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		log.Error().Err(err).Msg("auth0 id_token verification failed")
		return nil, err
	}

	profile := auth.ClaimSet{}
	if err := idToken.Claims(&profile); err != nil {
		return nil, fmt.Errorf("auth0 id_token claims parse failed: %w", err)
	}

	sub, _ := profile["sub"].(string)
	if sub == "" {
		return nil, errors.New("auth0 id_token missing sub claim")
	}

	user := auth.ClaimSet{
		"id":    sub,
		"name":  profile["name"],
		"email": profile["email"],
		"image": profile["picture"],
	}

	account := auth.ClaimSet{
		"provider":           providerName,
		"type":               "oidc",
		"providerAccountId":  sub,
		"providerConnection": p.connection,
		"access_token":       token.AccessToken,
		"token_type":         token.TokenType,
		"expires_at":         token.Expiry.Unix(),
	}

	log.Info().
		Str("issuer", idToken.Issuer).
		Bool("subject_present", sub != "").
		Int64("expiry_unix", idToken.Expiry.Unix()).
		Msg("auth0 oidc verified")

	return &auth.Callback{
		Identity: auth.ExternalIdentity{
			Provider:  providerName,
			SubjectID: sub,
		},
		User:    user,
		Account: account,
		Profile: profile,
	}, nil
}
