package oidc

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/jcline/jcline/src/internal/config"
	"github.com/jcline/jcline/src/internal/domain"
)

func newDisabled(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), config.OIDCConfig{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if s.Enabled() {
		t.Fatal("session without provider should be disabled")
	}
	return s
}

func TestObserveSessionReportsCurrentAndChanges(t *testing.T) {
	s := newDisabled(t)

	var seen []*domain.User
	cancel := s.ObserveSession(func(u *domain.User) { seen = append(seen, u) })

	s.SignIn(domain.User{ID: "sub-1", Email: "a@example.com"}, &oauth2.Token{AccessToken: "tok"})
	_ = s.SignOut(context.Background())
	cancel()
	s.SignIn(domain.User{ID: "sub-2"}, &oauth2.Token{AccessToken: "tok2"})

	if len(seen) != 3 {
		t.Fatalf("observer calls = %d, want 3", len(seen))
	}
	if seen[0] != nil {
		t.Errorf("initial user = %+v, want nil", seen[0])
	}
	if seen[1] == nil || seen[1].ID != "sub-1" {
		t.Errorf("after sign-in = %+v", seen[1])
	}
	if seen[2] != nil {
		t.Errorf("after sign-out = %+v, want nil", seen[2])
	}
}

func TestSignOutWhenSignedOutIsQuiet(t *testing.T) {
	s := newDisabled(t)
	calls := 0
	s.ObserveSession(func(*domain.User) { calls++ })

	if err := s.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if calls != 1 {
		t.Errorf("observer calls = %d, want only the initial one", calls)
	}
}

func TestTokenSource(t *testing.T) {
	s := newDisabled(t)
	if _, err := s.Token(); !errors.Is(err, ErrSignedOut) {
		t.Fatalf("err = %v, want ErrSignedOut", err)
	}

	s.SignIn(domain.User{ID: "sub-1"}, &oauth2.Token{AccessToken: "abc", Expiry: time.Now().Add(time.Hour)})
	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "abc" {
		t.Errorf("AccessToken = %q, want abc", tok.AccessToken)
	}
	if u := s.User(); u == nil || u.ID != "sub-1" {
		t.Errorf("User = %+v", u)
	}
}

func TestExchangeRequiresProvider(t *testing.T) {
	s := newDisabled(t)
	if _, err := s.Exchange(context.Background(), "code"); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}

func TestClaimsUserFallsBackToUsername(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u := Claims{Subject: "s", PreferredUsername: "neo"}.User(now)
	if u.ID != "s" || u.Email != "neo" || !u.CreatedAt.Equal(now) {
		t.Errorf("user = %+v", u)
	}
}
