package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/scribe/internal/server"
	"github.com/desertthunder/scribe/internal/shared"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

// TokenStore persists the provider's OAuth2 token between runs.
//
// LoadToken returns (nil, nil) when nothing is stored. Implementations must keep the "id_token" extra.
type TokenStore interface {
	LoadToken(ctx context.Context) (*oauth2.Token, error)
	SaveToken(ctx context.Context, token *oauth2.Token) error
	ClearToken(ctx context.Context) error
}

// Authorizer drives the interactive part of the authorization code flow and returns the exchanged token.
type Authorizer func(ctx context.Context, config *oauth2.Config, authURL, state string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)

// OIDCConfig describes the identity provider tenant.
type OIDCConfig struct {
	Domain       string // tenant domain, with or without scheme
	ClientID     string
	Audience     string
	ClaimKey     string // namespaced roles claim
	RedirectURL  string
	CallbackAddr string
}

// OIDCProvider implements [Provider] against an Auth0-style tenant using the authorization code flow with PKCE.
//
// The session is re-derived on every call from the stored token's ID token claims.
// Claims are decoded without signature verification: they only gate client-side UX and
// the backend remains the enforcement point for entitlement and quota.
type OIDCProvider struct {
	config    OIDCConfig
	oauth     *oauth2.Config
	store     TokenStore
	logger    *log.Logger
	authorize Authorizer
	browse    func(string) error
	loading   atomic.Bool
}

// NewOIDCProvider creates an [OIDCProvider]. The logger may be nil.
func NewOIDCProvider(config OIDCConfig, store TokenStore, logger *log.Logger) (*OIDCProvider, error) {
	domain := strings.TrimRight(strings.TrimPrefix(strings.TrimPrefix(config.Domain, "https://"), "http://"), "/")
	if domain == "" || config.ClientID == "" {
		return nil, fmt.Errorf("%w: identity provider domain and client id are required", shared.ErrMissingConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: token store is required", shared.ErrInvalidArgument)
	}
	if config.ClaimKey == "" {
		config.ClaimKey = shared.DefaultClaim
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	config.Domain = domain

	p := &OIDCProvider{
		config: config,
		oauth: &oauth2.Config{
			ClientID:    config.ClientID,
			RedirectURL: config.RedirectURL,
			Scopes:      []string{"openid", "profile", "email", "offline_access"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://" + domain + "/authorize",
				TokenURL:  "https://" + domain + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:  store,
		logger: shared.WithLogger(logger, "provider", domain),
		browse: shared.OpenBrowser,
	}
	p.authorize = p.browserAuthorize
	return p, nil
}

// SetAuthorizer replaces the interactive login step. Used by tests.
func (p *OIDCProvider) SetAuthorizer(a Authorizer) { p.authorize = a }

// SetBrowser replaces the function used to open URLs.
func (p *OIDCProvider) SetBrowser(open func(string) error) { p.browse = open }

// OAuthConfig exposes the underlying [oauth2.Config].
func (p *OIDCProvider) OAuthConfig() *oauth2.Config { return p.oauth }

// Session derives the current session from the stored token, refreshing it when expired.
func (p *OIDCProvider) Session(ctx context.Context) (Session, error) {
	if p.loading.Load() {
		return Loading, nil
	}

	token, err := p.store.LoadToken(ctx)
	if err != nil {
		return Anonymous, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return Anonymous, nil
	}

	if !token.Valid() {
		if token, err = p.refresh(ctx, token); err != nil {
			p.logger.Warn("stored session expired", "error", err)
			return Anonymous, nil
		}
	}

	identity, err := p.identity(token)
	if err != nil {
		p.logger.Warn("stored token has no usable identity", "error", err)
		return Anonymous, nil
	}

	return Authenticated(identity), nil
}

// AccessToken returns the current access token, or "" when signed out.
func (p *OIDCProvider) AccessToken(ctx context.Context) string {
	token, err := p.store.LoadToken(ctx)
	if err != nil || token == nil || !token.Valid() {
		return ""
	}
	return token.AccessToken
}

func (p *OIDCProvider) refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	if stale.RefreshToken == "" {
		return nil, shared.ErrTokenExpired
	}

	fresh, err := p.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTokenExpired, err)
	}

	if idToken(fresh) == "" {
		fresh = fresh.WithExtra(map[string]any{"id_token": idToken(stale)})
	}
	if err := p.store.SaveToken(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}
	return fresh, nil
}

func (p *OIDCProvider) identity(token *oauth2.Token) (*Identity, error) {
	raw := idToken(token)
	if raw == "" {
		return nil, shared.ErrNoIDToken
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", shared.ErrAuthFailed)
	}
	return IdentityFromClaims(claims, p.config.ClaimKey)
}

func idToken(token *oauth2.Token) string {
	if token == nil {
		return ""
	}
	s, _ := token.Extra("id_token").(string)
	return s
}

// Login runs the authorization code flow and stores the resulting token.
//
// While the flow is in flight [OIDCProvider.Session] reports [Loading].
func (p *OIDCProvider) Login(ctx context.Context) error {
	if !p.loading.CompareAndSwap(false, true) {
		return fmt.Errorf("login %w", shared.ErrBusy)
	}
	defer p.loading.Store(false)

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if p.config.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", p.config.Audience))
	}
	authURL := p.oauth.AuthCodeURL(state, opts...)

	token, err := p.authorize(ctx, p.oauth, authURL, state, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	if idToken(token) == "" {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, shared.ErrNoIDToken)
	}

	if err := p.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	p.logger.Info("signed in")
	return nil
}

// Logout clears the stored token and opens the provider's logout page.
func (p *OIDCProvider) Logout(ctx context.Context) error {
	if err := p.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	if err := p.browse(p.LogoutURL()); err != nil {
		p.logger.Warn("failed to open logout page", "error", err)
	}
	p.logger.Info("signed out")
	return nil
}

// LogoutURL is the provider logout endpoint returning to the local callback origin.
func (p *OIDCProvider) LogoutURL() string {
	params := url.Values{"client_id": {p.config.ClientID}}
	if u, err := url.Parse(p.config.RedirectURL); err == nil && u.Host != "" {
		params.Set("returnTo", u.Scheme+"://"+u.Host)
	}
	return "https://" + p.config.Domain + "/v2/logout?" + params.Encode()
}

// browserAuthorize serves the callback on the configured address, opens the browser and waits for the exchange.
func (p *OIDCProvider) browserAuthorize(ctx context.Context, config *oauth2.Config, authURL, state string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	handler := server.NewOAuthHandler(config, state, opts...)
	router := server.NewCallbackRouter()
	router.Use(server.RequestLogger(p.logger), server.Recover(p.logger))
	router.Mount(handler)

	callback := server.NewCallbackServer(p.config.CallbackAddr, router, p.logger)
	callback.Start()
	defer callback.Shutdown()

	if err := p.browse(authURL); err != nil {
		p.logger.Warn("could not open browser automatically, open this URL to sign in", "url", authURL, "error", err)
	}

	timeout := time.NewTimer(loginTimeout)
	defer timeout.Stop()

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		if result.Token == nil {
			return nil, fmt.Errorf("no token received")
		}
		return result.Token, nil
	case err := <-callback.Errors():
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, loginTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ Provider = (*OIDCProvider)(nil)
