// Package oidc holds the signed-in session of the device agent and the bearer
// verification of the profile service, both backed by an OpenID Connect
// provider.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/jcline/jcline/src/internal/config"
	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
)

var (
	ErrDisabled  = errors.New("identity provider not configured")
	ErrSignedOut = errors.New("no signed-in user")
)

// Claims are the ID token claims the agent reads.
type Claims struct {
	Subject           string `json:"sub"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
}

// User maps claims to a user, falling back to the username when the provider
// sends no email.
func (c Claims) User(now time.Time) domain.User {
	email := c.Email
	if email == "" {
		email = c.PreferredUsername
	}
	return domain.User{ID: c.Subject, Email: email, CreatedAt: now, LastSeen: now}
}

// Session is the identity provider of the device agent. It keeps the current
// user and token and tells observers about every sign-in and sign-out.
type Session struct {
	provider *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
	oauth    oauth2.Config
	log      zerolog.Logger

	mu        sync.Mutex
	user      *domain.User
	token     *oauth2.Token
	observers map[int]func(*domain.User)
	nextID    int
}

// NewSession discovers the provider. A config without a provider yields a
// disabled session that stays signed out.
func NewSession(ctx context.Context, cfg config.OIDCConfig) (*Session, error) {
	s := &Session{
		observers: make(map[int]func(*domain.User)),
		log:       logging.Component("identity"),
	}
	if !cfg.Enabled() {
		s.log.Warn().Msg("OIDC provider not configured, running signed out")
		return s, nil
	}

	provider, err := gooidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("oidc.NewSession: discover %s: %w", cfg.ProviderURL, err)
	}
	s.provider = provider
	s.verifier = provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID})
	s.oauth = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{gooidc.ScopeOpenID, "profile", "email"},
	}
	return s, nil
}

func (s *Session) Enabled() bool {
	return s.provider != nil
}

func (s *Session) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens, verifies the ID token and
// signs the user in.
func (s *Session) Exchange(ctx context.Context, code string) (*domain.User, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oidc.Exchange: %w", err)
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		return nil, errors.New("oidc.Exchange: token response has no id_token")
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("oidc.Exchange: verify id token: %w", err)
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc.Exchange: claims: %w", err)
	}

	u := claims.User(time.Now())
	s.SignIn(u, tok)
	return &u, nil
}

// SignIn replaces the current session.
func (s *Session) SignIn(u domain.User, tok *oauth2.Token) {
	s.mu.Lock()
	s.user = &u
	s.token = tok
	observers := s.snapshotObservers()
	s.mu.Unlock()

	s.log.Info().Str("user", u.ID).Msg("signed in")
	notify(observers, &u)
}

func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return nil
	}
	prev := s.user.ID
	s.user = nil
	s.token = nil
	observers := s.snapshotObservers()
	s.mu.Unlock()

	s.log.Info().Str("user", prev).Msg("signed out")
	notify(observers, nil)
	return nil
}

// ObserveSession calls fn with the current user now and after every change.
func (s *Session) ObserveSession(fn func(*domain.User)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	current := copyUser(s.user)
	s.mu.Unlock()

	fn(current)
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// User returns the signed-in user or nil.
func (s *Session) User() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.user)
}

// Token implements oauth2.TokenSource for calls made on behalf of the user.
// Expired tokens are refreshed when the provider issued a refresh token.
func (s *Session) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, ErrSignedOut
	}
	if s.token.Valid() {
		return s.token, nil
	}
	tok, err := s.oauth.TokenSource(context.Background(), s.token).Token()
	if err != nil {
		return nil, fmt.Errorf("oidc.Token: refresh: %w", err)
	}
	s.token = tok
	return tok, nil
}

func (s *Session) snapshotObservers() []func(*domain.User) {
	out := make([]func(*domain.User), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(*domain.User), u *domain.User) {
	for _, fn := range observers {
		fn(copyUser(u))
	}
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
