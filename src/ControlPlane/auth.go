package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/adapters/oidc"
	"github.com/jcline/jcline/src/internal/adapters/profileapi"
	"github.com/jcline/jcline/src/internal/config"
	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
)

type UserProvisioner interface {
	FindOrCreate(ctx context.Context, id, email string) (*domain.User, error)
}

type AuthMiddleware struct {
	Verifier oidc.TokenVerifier
	Users    UserProvisioner
	log      zerolog.Logger
}

func NewAuthMiddleware(ctx context.Context, users UserProvisioner, cfg config.OIDCConfig) *AuthMiddleware {
	m := &AuthMiddleware{Users: users, log: logging.Component("auth")}
	if cfg.ProviderURL == "" {
		m.log.Warn().Msg("OIDC provider URL not set, profile API will refuse every request")
		return m
	}

	verifier, err := oidc.NewVerifier(ctx, cfg)
	if err != nil {
		// Don't crash, requests fail until restart.
		m.log.Error().Err(err).Msg("failed to query OIDC provider")
		return m
	}
	m.Verifier = verifier
	return m
}

// RequireAuth verifies the bearer token, provisions the user just in time and
// stores the subject for the profile routes.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Verifier == nil {
			http.Error(w, "OIDC not configured on server", http.StatusServiceUnavailable)
			return
		}

		parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			http.Error(w, "Missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		claims, err := m.Verifier.Verify(ctx, parts[1])
		if err != nil {
			m.log.Debug().Err(err).Msg("token verification failed")
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		email := claims.Email
		if email == "" {
			email = claims.PreferredUsername
		}
		user, err := m.Users.FindOrCreate(ctx, claims.Subject, email)
		if err != nil {
			m.log.Error().Err(err).Str("user", claims.Subject).Msg("user provisioning failed")
			http.Error(w, "User provisioning failed", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r.WithContext(profileapi.WithSubject(ctx, user.ID)))
	})
}
