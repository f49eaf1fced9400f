package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/ports"
)

// SessionManager follows the identity provider: a signed-in user starts a
// hydration in the background, no user signs the synchronizer out.
type SessionManager struct {
	identity ports.IdentityProvider
	sync     *Synchronizer
	log      zerolog.Logger

	mu      sync.Mutex
	current string
	wg      sync.WaitGroup
}

func NewSessionManager(identity ports.IdentityProvider, s *Synchronizer) *SessionManager {
	return &SessionManager{identity: identity, sync: s, log: logging.Component("session")}
}

// Serve observes the session until ctx is done.
func (m *SessionManager) Serve(ctx context.Context) error {
	cancel := m.identity.ObserveSession(func(u *domain.User) {
		m.onSession(ctx, u)
	})
	<-ctx.Done()
	cancel()
	m.wg.Wait()
	return ctx.Err()
}

func (m *SessionManager) onSession(ctx context.Context, u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u == nil {
		if m.current != "" {
			m.current = ""
			m.sync.SignOut()
		}
		return
	}
	if u.ID == m.current {
		return
	}
	m.current = u.ID
	m.log.Info().Str("user", u.ID).Msg("session started, hydrating")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.sync.Hydrate(ctx, u.ID)
	}()
}

// SignOut signs out at the identity provider. The observer callback then
// discards the profile.
func (m *SessionManager) SignOut(ctx context.Context) error {
	return m.identity.SignOut(ctx)
}

// Wait blocks until running hydrations finish.
func (m *SessionManager) Wait() {
	m.wg.Wait()
}
