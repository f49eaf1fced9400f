package main

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
)

const stateCookie = "jcline_oauth_state"

// LoginFlow is the part of the identity session the login handlers drive.
type LoginFlow interface {
	Enabled() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.User, error)
}

type SignOuter interface {
	SignOut(ctx context.Context) error
}

// AuthHandlers runs the OIDC authorization code flow for the device agent.
// Failures redirect home with ?auth_error=<message> for the page to show
// inline; profile state is not touched.
type AuthHandlers struct {
	flow    LoginFlow
	session SignOuter
	log     zerolog.Logger
}

func NewAuthHandlers(flow LoginFlow, session SignOuter) *AuthHandlers {
	return &AuthHandlers{flow: flow, session: session, log: logging.Component("auth")}
}

func (a *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.flow.Enabled() {
		a.fail(w, r, "Sign-in is not configured.")
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, a.flow.AuthCodeURL(state), http.StatusFound)
}

func (a *AuthHandlers) HandleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		a.fail(w, r, "Sign-in expired, please try again.")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	if msg := r.URL.Query().Get("error_description"); msg != "" {
		a.fail(w, r, msg)
		return
	}

	user, err := a.flow.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.log.Warn().Err(err).Msg("sign-in failed")
		a.fail(w, r, "Sign-in failed, please try again.")
		return
	}
	a.log.Info().Str("user", user.ID).Msg("signed in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.session.SignOut(r.Context()); err != nil {
		a.log.Error().Err(err).Msg("sign out")
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *AuthHandlers) fail(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/?auth_error="+url.QueryEscape(msg), http.StatusFound)
}
