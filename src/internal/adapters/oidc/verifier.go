package oidc

import (
	"context"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	"github.com/jcline/jcline/src/internal/config"
)

// TokenVerifier checks bearer tokens presented to the profile service.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Claims, error)
}

type providerVerifier struct {
	verifier *gooidc.IDTokenVerifier
}

// NewVerifier builds a verifier for access tokens issued by the provider.
// The audience of an access token rarely matches the client id, so that check
// is skipped.
func NewVerifier(ctx context.Context, cfg config.OIDCConfig) (TokenVerifier, error) {
	provider, err := gooidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("oidc.NewVerifier: discover %s: %w", cfg.ProviderURL, err)
	}
	return &providerVerifier{
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID, SkipClientIDCheck: true}),
	}, nil
}

func (v *providerVerifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	tok, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	var claims Claims
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("claims: %w", err)
	}
	if claims.Subject == "" {
		claims.Subject = tok.Subject
	}
	return &claims, nil
}
