package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcline/jcline/src/internal/adapters/oidc"
	"github.com/jcline/jcline/src/internal/adapters/profileapi"
	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
)

type tokenTable map[string]oidc.Claims

func (t tokenTable) Verify(ctx context.Context, raw string) (*oidc.Claims, error) {
	c, ok := t[raw]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &c, nil
}

type recordingUsers struct {
	emails map[string]string
	err    error
}

func (u *recordingUsers) FindOrCreate(ctx context.Context, id, email string) (*domain.User, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.emails[id] = email
	return &domain.User{ID: id, Email: email}, nil
}

func TestRequireAuth(t *testing.T) {
	users := &recordingUsers{emails: map[string]string{}}
	m := &AuthMiddleware{
		Verifier: tokenTable{"good": {Subject: "sub-1", PreferredUsername: "neo"}},
		Users:    users,
		log:      logging.Component("auth"),
	}
	var subject string
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = profileapi.SubjectFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/profiles/sub-1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if subject != "sub-1" {
		t.Errorf("subject = %q, want sub-1", subject)
	}
	if users.emails["sub-1"] != "neo" {
		t.Errorf("provisioned email = %q, want username fallback", users.emails["sub-1"])
	}
}

func TestRequireAuthWithoutProvider(t *testing.T) {
	m := &AuthMiddleware{log: logging.Component("auth")}
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without a verifier")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRequireAuthProvisioningFailure(t *testing.T) {
	m := &AuthMiddleware{
		Verifier: tokenTable{"good": {Subject: "sub-1"}},
		Users:    &recordingUsers{err: errors.New("db down")},
		log:      logging.Component("auth"),
	}
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
