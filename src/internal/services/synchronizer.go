package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/metrics"
	"github.com/jcline/jcline/src/internal/ports"
)

// remoteWriteTimeout bounds a single fire-and-forget remote write.
const remoteWriteTimeout = 15 * time.Second

// ChangeListener is called after every mutation that changed state. It runs on
// the mutating goroutine, outside the state lock, and may call Mutate.
type ChangeListener func(domain.Change)

// Synchronizer owns the working profile of the current session. State changes
// only through Hydrate, Mutate and SignOut. Every mutation is published, then
// written to the device cache and, when signed in, to the remote store. Each
// store has its own ordered writer, so writes land in the order the state
// changed. Failures are logged, never returned.
type Synchronizer struct {
	local   *LocalProfile
	remote  ports.ProfileStore
	content ports.NewContentSource
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger

	mu         sync.Mutex
	state      domain.Profile
	userID     string
	session    uint64
	listeners  []ChangeListener
	publishers []ports.Publisher

	localWrites  *orderedWriter
	remoteWrites *orderedWriter
}

type SynchronizerOption func(*Synchronizer)

func WithClock(now func() time.Time) SynchronizerOption {
	return func(s *Synchronizer) { s.now = now }
}

func WithIDGenerator(newID func() string) SynchronizerOption {
	return func(s *Synchronizer) { s.newID = newID }
}

func NewSynchronizer(local *LocalProfile, remote ports.ProfileStore, content ports.NewContentSource, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		local:   local,
		remote:  remote,
		content: content,
		now:     time.Now,
		newID:   uuid.NewString,
		log:     logging.Component("sync"),

		localWrites:  newOrderedWriter(),
		remoteWrites: newOrderedWriter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = local.Load()
	return s
}

// OnChange registers a listener for non-empty changes.
func (s *Synchronizer) OnChange(fn ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// AddPublisher registers a snapshot consumer. Publish is called with the state
// lock held and must not call back into the Synchronizer.
func (s *Synchronizer) AddPublisher(p ports.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, p)
}

// Snapshot returns a copy of the working state.
func (s *Synchronizer) Snapshot() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// UserID returns the signed-in user, or "" when signed out.
func (s *Synchronizer) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Hydrate starts a session for userID. The cached lists are published at once;
// the remote document then replaces them (remote wins) and the cache is
// rewritten to match. A user without a document gets a seeded one. New-content
// derivation runs once after a successful load or seed. Hydrate returns when
// all of that is done; a sign-out in the meantime discards the result.
func (s *Synchronizer) Hydrate(ctx context.Context, userID string) {
	s.localWrites.wait()
	snapshot := s.local.Load()

	s.mu.Lock()
	s.session++
	gen := s.session
	s.userID = userID
	s.state = snapshot.Clone()
	s.publishLocked()
	s.mu.Unlock()

	log := s.log.With().Str("user", userID).Logger()

	remote, err := s.remote.Get(ctx, userID)
	switch {
	case err == nil:
		remote.Normalize()
		if remote.LastNotificationCheck == 0 {
			remote.LastNotificationCheck = s.now().UnixMilli()
		}
		if !s.adopt(gen, *remote, true) {
			log.Info().Msg("sign-out during hydration, remote profile discarded")
			metrics.RecordHydration("discarded")
			return
		}
		metrics.RecordHydration("loaded")
		log.Info().Int("favorites", len(remote.Favorites)).Int("history", len(remote.History)).Msg("profile hydrated")

	case errors.Is(err, domain.ErrProfileNotFound):
		seed := domain.SeedProfile(snapshot, s.now(), s.newID())
		if err := s.remote.Create(ctx, userID, &seed); err != nil {
			log.Error().Err(err).Str("store", "remote").Msg("seeding profile failed")
			metrics.RecordHydration("failed")
			return
		}
		if !s.adopt(gen, seed, false) {
			log.Info().Msg("sign-out during seeding, profile discarded")
			metrics.RecordHydration("discarded")
			return
		}
		metrics.RecordHydration("seeded")
		log.Info().Msg("profile seeded")

	default:
		log.Error().Err(err).Str("store", "remote").Msg("loading profile failed, keeping cached lists")
		metrics.RecordHydration("failed")
		return
	}

	s.deriveNewContent(ctx, gen)
}

// adopt replaces the working state if session gen is still current. With
// writeBack the adopted lists are queued for the device cache ahead of any
// later mutation.
func (s *Synchronizer) adopt(gen uint64, p domain.Profile, writeBack bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.session {
		return false
	}
	s.state = p.Clone()
	s.publishLocked()
	if writeBack {
		s.writeLocal(s.state.Clone(), domain.LocalFields)
	}
	return true
}

// SignOut ends the session. The working state falls back to the device lists.
func (s *Synchronizer) SignOut() {
	s.localWrites.wait()
	s.mu.Lock()
	s.session++
	prev := s.userID
	s.userID = ""
	s.state = s.local.Load()
	s.publishLocked()
	s.mu.Unlock()

	if prev != "" {
		s.log.Info().Str("user", prev).Msg("signed out, profile discarded")
	}
}

// Mutate applies op to the working state. A zero Change means nothing happened
// and nothing was written.
func (s *Synchronizer) Mutate(op domain.Operation) domain.Change {
	return s.apply(0, op)
}

// apply runs op; a non-zero gen restricts it to that session.
func (s *Synchronizer) apply(gen uint64, op domain.Operation) domain.Change {
	s.mu.Lock()
	if gen != 0 && gen != s.session {
		s.mu.Unlock()
		return domain.Change{}
	}
	change := op.Apply(&s.state, domain.Env{Now: s.now(), NewID: s.newID})
	if change.IsZero() {
		s.mu.Unlock()
		return change
	}
	s.publishLocked()
	snapshot := s.state.Clone()
	s.writeLocal(snapshot, change.Fields)
	if s.userID != "" {
		s.writeRemote(s.userID, snapshot.UpdateFor(change.Fields...))
	}
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(change)
	}
	return change
}

func (s *Synchronizer) publishLocked() {
	for _, p := range s.publishers {
		p.Publish(s.state.Clone().View(s.userID != ""))
	}
}

// writeLocal and writeRemote queue a write and return at once. Callers hold
// s.mu so queue order matches state order.
func (s *Synchronizer) writeLocal(p domain.Profile, fields []domain.ProfileField) {
	var local []domain.ProfileField
	for _, f := range fields {
		for _, lf := range domain.LocalFields {
			if f == lf {
				local = append(local, f)
			}
		}
	}
	if len(local) == 0 {
		return
	}

	s.localWrites.push(func() {
		err := s.local.SaveLists(p, local...)
		for _, f := range local {
			metrics.RecordStoreWrite("local", string(f), err)
		}
		if err != nil {
			s.log.Error().Err(err).Str("store", "local").Msg("cache write failed")
		}
	})
}

func (s *Synchronizer) writeRemote(userID string, update domain.ProfileUpdate) {
	s.remoteWrites.push(func() {
		ctx, cancel := context.WithTimeout(context.Background(), remoteWriteTimeout)
		defer cancel()

		err := s.remote.UpdateFields(ctx, userID, update)
		for _, f := range update.Fields() {
			metrics.RecordStoreWrite("remote", string(f), err)
		}
		if err != nil {
			s.log.Error().Err(err).Str("store", "remote").Str("user", userID).
				Interface("fields", update.Fields()).Msg("profile write failed")
		}
	})
}

// Wait blocks until every write queued so far has settled.
func (s *Synchronizer) Wait() {
	s.localWrites.wait()
	s.remoteWrites.wait()
}

// deriveNewContent runs one new-content check for session gen.
func (s *Synchronizer) deriveNewContent(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.session {
		s.mu.Unlock()
		return
	}
	lastCheck := s.state.LastNotificationCheck
	s.mu.Unlock()

	prefs := s.local.Preferences()
	var movies, episodes []domain.NewContentItem
	if s.content != nil {
		if prefs.NotifyMovies {
			movies = s.fetchCandidates(ctx, "movies", s.content.NewMovies)
		}
		if prefs.NotifyEpisodes {
			episodes = s.fetchCandidates(ctx, "episodes", s.content.NewEpisodes)
		}
	}

	d := Derive(lastCheck, s.now(), movies, episodes, prefs)
	counts := map[domain.NotificationCategory]int{}
	for _, draft := range d.Drafts {
		if s.apply(gen, draft).IsZero() {
			return
		}
		counts[draft.Category]++
	}
	for category, n := range counts {
		metrics.RecordDerived(string(category), n)
	}
	s.apply(gen, domain.AdvanceWatermark{To: d.Watermark})
}

func (s *Synchronizer) fetchCandidates(ctx context.Context, kind string, fetch func(context.Context) ([]domain.NewContentItem, error)) []domain.NewContentItem {
	items, err := fetch(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("feed", kind).Msg("new-content source failed, treating as empty")
		return nil
	}
	return items
}
