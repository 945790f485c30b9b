package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Profile is everything account provisioning needs from the identity provider.
type Profile struct {
	Email       string
	SubjectID   string
	DisplayName string
	PictureURL  string
}

// FirstName returns the first word of the display name, falling back to the email local part.
func (p Profile) FirstName() string {
	if fields := strings.Fields(p.DisplayName); len(fields) > 0 {
		return fields[0]
	}
	local, _, _ := strings.Cut(p.Email, "@")
	return local
}

// IdentityProvider performs the OAuth2 authorization-code exchange.
type IdentityProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (*Profile, error)
}

// OIDCConfig configures the OpenID Connect identity provider.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// OIDCProvider exchanges authorization codes against an OpenID Connect issuer.
type OIDCProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	timeout     time.Duration
}

// NewOIDCProvider performs issuer discovery and builds the provider.
func NewOIDCProvider(ctx context.Context, cfg OIDCConfig) (*OIDCProvider, error) {
	if strings.TrimSpace(cfg.Issuer) == "" {
		return nil, errors.New("oidc provider: issuer is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("oidc provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("oidc provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("oidc provider: redirect url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}
	discoveryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	issuer, err := oidc.NewProvider(discoveryCtx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: discovery failed: %w", err)
	}

	return &OIDCProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     issuer.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: issuer.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		timeout:  timeout,
	}, nil
}

// AuthCodeURL returns the provider URL the browser is redirected to.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
}

// Exchange trades the authorization code for a verified profile.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*Profile, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("oidc provider: authorization code missing")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: exchange failed: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("oidc provider: id token missing")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: verify id token: %w", err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, errors.New("oidc provider: nonce mismatch")
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc provider: decode claims: %w", err)
	}

	return profileFromClaims(idToken.Subject, claims)
}

func profileFromClaims(subject string, claims map[string]any) (*Profile, error) {
	email := strings.ToLower(strings.TrimSpace(stringClaim(claims, "email")))
	if email == "" {
		return nil, errors.New("oidc provider: email claim missing")
	}
	if verified, present := claims["email_verified"]; present && !boolClaim(verified) {
		return nil, errors.New("oidc provider: email not verified")
	}

	name := strings.TrimSpace(stringClaim(claims, "name"))
	if name == "" {
		name = strings.TrimSpace(stringClaim(claims, "given_name") + " " + stringClaim(claims, "family_name"))
	}

	return &Profile{
		Email:       email,
		SubjectID:   subject,
		DisplayName: name,
		PictureURL:  stringClaim(claims, "picture"),
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	if v, ok := claims[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolClaim(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	}
	return false
}
