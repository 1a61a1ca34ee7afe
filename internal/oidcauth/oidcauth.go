// Package oidcauth implements the authorization-code-with-PKCE flow and
// RFC 9449 DPoP proof-of-possession for the AAI identity provider,
// grounded on the teacher's security/oidc.go (coreos/go-oidc + oauth2)
// and original_source/metadata_backend/services/auth_service.py's
// RPHandler wiring (DPoP signing algs, S256 PKCE, 64-byte verifier).
package oidcauth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/CSCfi/metadata-submitter-sub002/internal/apperr"
)

// Config mirrors security.OIDCConfig plus the fields the Python
// implementation's RPHandler config carries for DPoP/PKCE.
type Config struct {
	ProviderURL  string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider wraps OIDC discovery, ID-token verification, and the OAuth2
// authorization-code exchange.
type Provider struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	cfg      Config
}

func New(ctx context.Context, cfg Config) (*Provider, error) {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}
	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "discover OIDC provider", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &Provider{provider: provider, verifier: verifier, cfg: cfg}, nil
}

func (p *Provider) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.cfg.RedirectURL,
		Endpoint:     p.provider.Endpoint(),
		Scopes:       p.cfg.Scopes,
	}
}

// AuthSession is the server-side state kept between AuthCodeURL and the
// callback: the OIDC state, PKCE verifier, and DPoP signing key, stored
// only server-side and compared on callback per spec.md §5 ("Auth
// nonces/state").
type AuthSession struct {
	State         string
	CodeVerifier  string
	DPoPKey       *DPoPKey
}

// BeginLogin builds the authorization URL and the session state to persist
// until the callback arrives, using S256 PKCE with a 64-byte verifier
// (original_source: code_challenge_method=S256, length 64).
func (p *Provider) BeginLogin() (authURL string, session *AuthSession, err error) {
	state, err := randomURLSafe(32)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindSystem, "generate state", err)
	}
	verifier, err := randomURLSafe(64)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindSystem, "generate code verifier", err)
	}
	dpopKey, err := NewDPoPKey()
	if err != nil {
		return "", nil, apperr.Wrap(apperr.KindSystem, "generate DPoP key", err)
	}

	challenge := pkceChallengeS256(verifier)
	cfg := p.OAuth2Config()
	url := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
	return url, &AuthSession{State: state, CodeVerifier: verifier, DPoPKey: dpopKey}, nil
}

// Finalize validates the callback's state, exchanges the code for tokens
// (attaching a DPoP proof per RFC 9449), verifies the ID token, and
// returns the verified ID token together with the OAuth2 token.
func (p *Provider) Finalize(ctx context.Context, session *AuthSession, state, code string) (*oidc.IDToken, *oauth2.Token, error) {
	if state == "" || state != session.State {
		return nil, nil, apperr.NewUnauthorized("OIDC state mismatch")
	}

	cfg := p.OAuth2Config()
	httpClient := newDPoPHTTPClient(session.DPoPKey, "")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	token, err := cfg.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", session.CodeVerifier),
	)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindUnauthorizedUser, "token exchange failed", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, nil, apperr.NewUnauthorized("no id_token in token response")
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.KindUnauthorizedUser, "id_token verification failed", err)
	}
	return idToken, token, nil
}

// UserInfo fetches the provider's userinfo endpoint using token, applying
// the Bearer->DPoP proof-of-possession upgrade (spec.md: "for the
// userinfo endpoint converts Authorization: Bearer <t> to Authorization:
// DPoP <t> with a proof bound to the access token").
func (p *Provider) UserInfo(ctx context.Context, session *AuthSession, token *oauth2.Token) (*UserInfoClaims, error) {
	httpClient := newDPoPHTTPClient(session.DPoPKey, "")
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)

	info, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorizedUser, "fetch userinfo", err)
	}
	var claims UserInfoClaims
	if err := info.Claims(&claims); err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorizedUser, "decode userinfo claims", err)
	}
	return &claims, nil
}

// UserInfo claims extracted the way
// original_source/.../auth_service.py's create_jwt_token_from_userinfo
// resolves a user id: CSCUserName, then remoteUserIdentifier, then sub.
type UserInfoClaims struct {
	Sub                 string `json:"sub"`
	CSCUserName          string `json:"CSCUserName"`
	RemoteUserIdentifier string `json:"remoteUserIdentifier"`
	GivenName            string `json:"given_name"`
	FamilyName           string `json:"family_name"`
}

func (c UserInfoClaims) ResolveUserID() string {
	if c.CSCUserName != "" {
		return c.CSCUserName
	}
	if c.RemoteUserIdentifier != "" {
		return c.RemoteUserIdentifier
	}
	return c.Sub
}

func (c UserInfoClaims) ResolveUserName() string {
	if c.GivenName != "" || c.FamilyName != "" {
		return fmt.Sprintf("%s %s", c.GivenName, c.FamilyName)
	}
	return c.ResolveUserID()
}

func randomURLSafe(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// pkceChallengeS256 derives the RFC 7636 S256 code challenge for verifier.
func pkceChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
