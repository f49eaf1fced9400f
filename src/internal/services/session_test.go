package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jcline/jcline/src/internal/domain"
)

type fakeIdentity struct {
	mu       sync.Mutex
	user     *domain.User
	observer func(*domain.User)
	ready    chan struct{}
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{ready: make(chan struct{})}
}

func (f *fakeIdentity) ObserveSession(fn func(*domain.User)) func() {
	f.mu.Lock()
	f.observer = fn
	u := f.user
	f.mu.Unlock()
	fn(u)
	close(f.ready)
	return func() {
		f.mu.Lock()
		f.observer = nil
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) set(u *domain.User) {
	f.mu.Lock()
	f.user = u
	fn := f.observer
	f.mu.Unlock()
	if fn != nil {
		fn(u)
	}
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.set(nil)
	return nil
}

func TestSessionManagerFollowsIdentity(t *testing.T) {
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.Favorites = []domain.Title{title(1, domain.MediaKindMovie)}
	remote.LastNotificationCheck = testNow.UnixMilli()
	_ = f.store.Create(context.Background(), "u1", &remote)
	s := f.start()

	identity := newFakeIdentity()
	identity.user = &domain.User{ID: "u1", Email: "a@example.com"}
	m := NewSessionManager(identity, s)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Serve(ctx) }()

	select {
	case <-identity.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("session was never observed")
	}
	m.Wait()
	s.Wait()

	if s.UserID() != "u1" || len(s.Snapshot().Favorites) != 1 {
		t.Fatalf("after sign-in: user=%q favorites=%+v", s.UserID(), s.Snapshot().Favorites)
	}

	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if s.UserID() != "" {
		t.Errorf("UserID = %q after sign-out", s.UserID())
	}

	cancel()
	select {
	case <-errc:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
