package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/endpoints"

	"dlchat/pkg/logging"
)

// reservedScopes are added to authorization requests automatically. Passing
// them explicitly is rejected so callers list only resource scopes.
var reservedScopes = map[string]bool{
	"openid":         true,
	"profile":        true,
	"email":          true,
	"offline_access": true,
}

// Token is an access token acquired from the identity provider.
type Token struct {
	// AccessToken is the bearer token value.
	AccessToken string

	// TokenType is typically "Bearer".
	TokenType string

	// ExpiresIn is the remaining lifetime in seconds, zero if unknown.
	ExpiresIn int64

	// Username is the signed-in user's display name, when an ID token was
	// issued. Empty for application tokens.
	Username string
}

// ProviderConfig configures a Provider.
type ProviderConfig struct {
	// TenantID is the Entra ID directory (tenant) identifier. Required.
	TenantID string

	// ClientID is the application (client) identifier. Required.
	ClientID string

	// ClientSecret enables the client credentials flow. Optional for
	// interactive sign-in.
	ClientSecret string

	// Authority overrides the default login.microsoftonline.com authority.
	// Useful against sovereign clouds or a test identity provider.
	Authority string

	// Scopes are the resource scopes to request. Reserved OIDC scopes
	// (openid, profile, email, offline_access) are managed automatically
	// and must not be listed here.
	Scopes []string

	// CallbackPort pins the local callback server to a fixed port. Zero
	// lets the kernel choose.
	CallbackPort int

	// HTTPClient overrides the client used for token endpoint calls.
	HTTPClient *http.Client

	// Store caches signed-in accounts across runs. Optional; without it
	// every interactive acquisition opens the browser.
	Store *AccountStore

	// OpenBrowser launches the user's browser at the authorization URL.
	// Defaults to the platform browser; tests replace it.
	OpenBrowser func(url string) error
}

// Provider acquires tokens from Microsoft Entra ID. It supports the
// interactive authorization code flow with PKCE for user tokens and the
// client credentials flow for application tokens, with silent reacquisition
// from the account store where possible.
type Provider struct {
	tenantID     string
	clientID     string
	clientSecret string
	authority    string
	scopes       []string
	callbackPort int
	httpClient   *http.Client
	store        *AccountStore
	openBrowser  func(url string) error
}

// NewProvider validates the configuration and creates a Provider.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if cfg.TenantID == "" {
		return nil, &ConfigError{Reason: "tenant ID is required"}
	}
	if cfg.ClientID == "" {
		return nil, &ConfigError{Reason: "client ID is required"}
	}
	for _, scope := range cfg.Scopes {
		if reservedScopes[strings.ToLower(scope)] {
			return nil, &ConfigError{Reason: fmt.Sprintf(
				"scope %q is reserved and requested automatically; list only resource scopes", scope)}
		}
	}

	p := &Provider{
		tenantID:     cfg.TenantID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		authority:    strings.TrimSuffix(cfg.Authority, "/"),
		scopes:       cfg.Scopes,
		callbackPort: cfg.CallbackPort,
		httpClient:   cfg.HTTPClient,
		store:        cfg.Store,
		openBrowser:  cfg.OpenBrowser,
	}
	if p.openBrowser == nil {
		p.openBrowser = openBrowser
	}
	return p, nil
}

// endpoint returns the OAuth2 endpoint for the configured authority.
func (p *Provider) endpoint() oauth2.Endpoint {
	if p.authority == "" {
		return endpoints.AzureAD(p.tenantID)
	}
	return oauth2.Endpoint{
		AuthURL:  p.authority + "/oauth2/v2.0/authorize",
		TokenURL: p.authority + "/oauth2/v2.0/token",
	}
}

// httpContext attaches the override HTTP client for oauth2 calls.
func (p *Provider) httpContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// defaultScope is the resource scope used when none are configured: every
// permission granted to the app registration itself.
func (p *Provider) defaultScope() string {
	return p.clientID + "/.default"
}

// interactiveConfig builds the oauth2 config for the authorization code flow.
// Reserved OIDC scopes are appended here so the provider issues an ID token
// and a refresh token.
func (p *Provider) interactiveConfig(redirectURI string) *oauth2.Config {
	scopes := p.scopes
	if len(scopes) == 0 {
		scopes = []string{p.defaultScope()}
	}
	scopes = append(append([]string{}, scopes...), "openid", "profile", "offline_access")

	return &oauth2.Config{
		ClientID:    p.clientID,
		Endpoint:    p.endpoint(),
		RedirectURL: redirectURI,
		Scopes:      scopes,
	}
}

// AcquireInteractive returns a user token. It first tries the account store:
// a fresh cached token is returned directly, and an expired one with a
// refresh token is renewed silently. Only when both fail does it open the
// browser for a full authorization code sign-in.
func (p *Provider) AcquireInteractive(ctx context.Context) (*Token, error) {
	ctx = p.httpContext(ctx)

	if tok := p.acquireSilent(ctx); tok != nil {
		return tok, nil
	}

	return p.acquireBrowser(ctx)
}

// acquireSilent tries the cached account. Returns nil when interactive
// sign-in is needed.
func (p *Provider) acquireSilent(ctx context.Context) *Token {
	if p.store == nil {
		return nil
	}

	account := p.store.Get(p.tenantID, p.clientID)
	if account == nil {
		return nil
	}

	if account.Fresh() {
		logging.Debug("auth", "Using cached token for tenant %s", p.tenantID)
		return accountToken(account)
	}

	if account.RefreshToken == "" {
		return nil
	}

	logging.Debug("auth", "Cached token expired, attempting silent refresh")
	cfg := p.interactiveConfig("")
	renewed, err := cfg.TokenSource(ctx, account.Token()).Token()
	if err != nil {
		logging.Info("auth", "Silent refresh failed, interactive sign-in required: %v", err)
		return nil
	}

	updated := p.accountFromToken(renewed, account.Username)
	if err := p.store.Put(updated); err != nil {
		logging.Warn("auth", "Failed to cache refreshed token: %v", err)
	}
	return accountToken(updated)
}

// acquireBrowser runs the full authorization code flow with PKCE.
func (p *Provider) acquireBrowser(ctx context.Context) (*Token, error) {
	server := newCallbackServer(p.callbackPort)
	redirectURI, err := server.Start(ctx)
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	defer server.Stop()

	state, err := randomState()
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	verifier := oauth2.GenerateVerifier()

	cfg := p.interactiveConfig(redirectURI)
	authURL := cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	fmt.Printf("Opening your browser to sign in. If it does not open, visit:\n\n  %s\n\n", authURL)
	if err := p.openBrowser(authURL); err != nil {
		logging.Warn("auth", "Failed to open browser: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	result, err := server.WaitForCallback(waitCtx)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("waiting for sign-in callback: %w", err)}
	}
	if result.IsError() {
		return nil, &AuthError{Code: result.Error, Description: result.ErrorDescription}
	}
	if result.State != state {
		return nil, &AuthError{Err: errors.New("state parameter mismatch in callback")}
	}
	if result.Code == "" {
		return nil, &AuthError{Err: errors.New("callback carried no authorization code")}
	}

	oauthToken, err := cfg.Exchange(ctx, result.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("exchanging authorization code: %w", err)}
	}

	username := usernameFromIDToken(oauthToken)
	account := p.accountFromToken(oauthToken, username)
	if p.store != nil {
		if err := p.store.Put(account); err != nil {
			logging.Warn("auth", "Failed to cache account: %v", err)
		}
	}

	logging.Info("auth", "Signed in to tenant %s as %s", p.tenantID, displayName(username))
	return accountToken(account), nil
}

// AcquireClientCredentials returns an application token using the client
// secret. The flow needs no user interaction and is not cached.
func (p *Provider) AcquireClientCredentials(ctx context.Context) (*Token, error) {
	if p.clientSecret == "" {
		return nil, &ConfigError{Reason: "client secret is required for the client credentials flow"}
	}

	scopes := p.scopes
	if len(scopes) == 0 {
		scopes = []string{p.defaultScope()}
	}

	cfg := &clientcredentials.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		TokenURL:     p.endpoint().TokenURL,
		Scopes:       scopes,
	}

	tok, err := cfg.Token(p.httpContext(ctx))
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("client credentials flow: %w", err)}
	}

	logging.Debug("auth", "Acquired application token for tenant %s", p.tenantID)
	return &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   expiresIn(tok.Expiry),
	}, nil
}

// Account returns the cached account for this provider, or nil.
func (p *Provider) Account() *Account {
	if p.store == nil {
		return nil
	}
	return p.store.Get(p.tenantID, p.clientID)
}

// SignOut removes the cached account for this provider.
func (p *Provider) SignOut() error {
	if p.store == nil {
		return nil
	}
	return p.store.Remove(p.tenantID, p.clientID)
}

// accountFromToken builds a cacheable account from a fresh oauth2 token.
func (p *Provider) accountFromToken(tok *oauth2.Token, username string) *Account {
	account := &Account{
		Username:     username,
		TenantID:     p.tenantID,
		ClientID:     p.clientID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		CreatedAt:    time.Now(),
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		account.IDToken = idToken
	}
	return account
}

func accountToken(account *Account) *Token {
	return &Token{
		AccessToken: account.AccessToken,
		TokenType:   account.TokenType,
		ExpiresIn:   expiresIn(account.Expiry),
		Username:    account.Username,
	}
}

func expiresIn(expiry time.Time) int64 {
	if expiry.IsZero() {
		return 0
	}
	remaining := time.Until(expiry)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// usernameFromIDToken extracts a display name from the ID token payload
// without verifying the signature. The value is informational only and is
// never used for authorization decisions.
func usernameFromIDToken(tok *oauth2.Token) string {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return ""
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}

	var claims struct {
		PreferredUsername string `json:"preferred_username"`
		Name              string `json:"name"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	if claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	return claims.Name
}

func displayName(username string) string {
	if username == "" {
		return "(unknown user)"
	}
	return username
}

// randomState generates an unguessable state parameter for CSRF protection.
func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
