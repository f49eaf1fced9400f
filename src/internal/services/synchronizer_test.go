package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jcline/jcline/src/internal/adapters/memory"
	"github.com/jcline/jcline/src/internal/domain"
)

var testNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func title(id int, kind domain.MediaKind) domain.Title {
	return domain.Title{ID: id, MediaKind: kind, Title: fmt.Sprintf("Title %d", id)}
}

func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// gatedStore blocks Get until release is closed and can fail on demand.
type gatedStore struct {
	*memory.InMemoryProfileStore
	release   chan struct{}
	started   chan struct{}
	getErr    error
	updateErr error

	mu      sync.Mutex
	updates []domain.ProfileUpdate
}

func newGatedStore() *gatedStore {
	return &gatedStore{InMemoryProfileStore: memory.NewProfileStore()}
}

func (g *gatedStore) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	if g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
	}
	if g.getErr != nil {
		return nil, g.getErr
	}
	return g.InMemoryProfileStore.Get(ctx, userID)
}

func (g *gatedStore) UpdateFields(ctx context.Context, userID string, u domain.ProfileUpdate) error {
	g.mu.Lock()
	g.updates = append(g.updates, u)
	g.mu.Unlock()
	if g.updateErr != nil {
		return g.updateErr
	}
	return g.InMemoryProfileStore.UpdateFields(ctx, userID, u)
}

func (g *gatedStore) updateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates)
}

type staticSource struct {
	movies, episodes []domain.NewContentItem
	err              error
	calls            int
}

func (s *staticSource) NewMovies(ctx context.Context) ([]domain.NewContentItem, error) {
	s.calls++
	return s.movies, s.err
}

func (s *staticSource) NewEpisodes(ctx context.Context) ([]domain.NewContentItem, error) {
	s.calls++
	return s.episodes, s.err
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []domain.ProfileView
}

func (r *recordingPublisher) Publish(p domain.ProfileView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, p)
}

type fixture struct {
	cache  *memory.InMemoryCache
	local  *LocalProfile
	store  *gatedStore
	source *staticSource
	sync   *Synchronizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cache:  memory.NewCache(),
		store:  newGatedStore(),
		source: &staticSource{},
	}
	f.local = NewLocalProfile(f.cache)
	return f
}

func (f *fixture) start() *Synchronizer {
	f.sync = NewSynchronizer(f.local, f.store, f.source,
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(seqIDs()))
	NewNotifier(f.sync).Attach(f.sync)
	return f.sync
}

func TestHydrateRemoteWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, b, c := title(1, domain.MediaKindMovie), title(2, domain.MediaKindMovie), title(3, domain.MediaKindTV)
	_ = f.local.SaveLists(domain.Profile{Favorites: []domain.Title{a}}, domain.FieldFavorites)

	remote := domain.NewProfile()
	remote.Favorites = []domain.Title{b, c}
	remote.LastNotificationCheck = testNow.UnixMilli()
	_ = f.store.Create(ctx, "u1", &remote)

	s := f.start()
	pub := &recordingPublisher{}
	s.AddPublisher(pub)
	s.Hydrate(ctx, "u1")
	s.Wait()

	got := s.Snapshot().Favorites
	if len(got) != 2 || got[0].ID != 2 || got[1].ID != 3 {
		t.Fatalf("favorites = %+v, want [B C]", got)
	}
	cached := f.local.Load().Favorites
	if len(cached) != 2 || cached[0].ID != 2 {
		t.Errorf("cached favorites = %+v, want [B C]", cached)
	}
	if len(pub.snapshots) < 2 || len(pub.snapshots[0].Favorites) != 1 || pub.snapshots[0].Favorites[0].ID != 1 {
		t.Errorf("first published snapshot should be the cached lists, got %+v", pub.snapshots)
	}
}

func TestHydrateSeedsFirstSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := title(1, domain.MediaKindMovie)
	_ = f.local.SaveLists(domain.Profile{Favorites: []domain.Title{a}}, domain.FieldFavorites)

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	doc, err := f.store.InMemoryProfileStore.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("seed document missing: %v", err)
	}
	if len(doc.Favorites) != 1 || doc.Favorites[0].ID != 1 {
		t.Errorf("seed favorites = %+v, want [A]", doc.Favorites)
	}
	if len(doc.Notifications) != 1 || doc.Notifications[0].Title != "Welcome to J-cline" {
		t.Errorf("seed notifications = %+v, want welcome only", doc.Notifications)
	}
	// Derivation ran with an empty feed and moved the watermark to now.
	if doc.LastNotificationCheck != testNow.UnixMilli() {
		t.Errorf("watermark = %d, want %d", doc.LastNotificationCheck, testNow.UnixMilli())
	}
}

func TestSeedWatermarkIsBackdated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.source.movies = []domain.NewContentItem{
		{ID: 1, Name: "Recent", Date: testNow.AddDate(0, 0, -10).Format("2006-01-02")},
		{ID: 2, Name: "Old", Date: testNow.AddDate(0, 0, -40).Format("2006-01-02")},
	}

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	notifs := s.Snapshot().Notifications
	if len(notifs) != 2 {
		t.Fatalf("notifications = %+v, want welcome + one movie", notifs)
	}
	if notifs[0].Category != domain.CategoryMovie || notifs[0].Message != `"Recent" is now available to watch.` {
		t.Errorf("newest notification = %+v", notifs[0])
	}
}

func TestToggleFavoriteTwiceEmitsTwoSystemNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.LastNotificationCheck = testNow.UnixMilli()
	_ = f.store.Create(ctx, "u1", &remote)

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	a := title(7, domain.MediaKindMovie)
	s.Mutate(domain.ToggleFavorite{Title: a})
	s.Mutate(domain.ToggleFavorite{Title: a})
	s.Wait()

	snap := s.Snapshot()
	if len(snap.Favorites) != 0 {
		t.Errorf("favorites = %+v, want empty", snap.Favorites)
	}
	var system []domain.Notification
	for _, n := range snap.Notifications {
		if n.Category == domain.CategorySystem {
			system = append(system, n)
		}
	}
	if len(system) != 2 {
		t.Fatalf("system notifications = %+v, want 2", system)
	}
	if system[0].Title != "Removed from Library" || system[1].Title != "Added to Library" {
		t.Errorf("titles = %q, %q", system[0].Title, system[1].Title)
	}
}

func TestMutationWritesOnlyTouchedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.History = []domain.HistoryEntry{{Title: title(1, domain.MediaKindMovie), Progress: 30}}
	remote.LastNotificationCheck = testNow.UnixMilli()
	_ = f.store.Create(ctx, "u1", &remote)

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	// Another device rewrites history behind our back.
	other := domain.NewProfile()
	other.History = []domain.HistoryEntry{{Title: title(9, domain.MediaKindTV), Progress: 80}}
	_ = f.store.InMemoryProfileStore.UpdateFields(ctx, "u1", other.UpdateFor(domain.FieldHistory))

	s.Mutate(domain.AddToWatchlist{Title: title(2, domain.MediaKindTV)})
	s.Wait()

	doc, _ := f.store.InMemoryProfileStore.Get(ctx, "u1")
	if len(doc.History) != 1 || doc.History[0].Title.ID != 9 {
		t.Errorf("remote history = %+v, want the other device's write untouched", doc.History)
	}
	if len(doc.MyList) != 1 {
		t.Errorf("remote myList = %+v, want one entry", doc.MyList)
	}
	if cached := f.local.Load().MyList; len(cached) != 1 {
		t.Errorf("cached myList = %+v, want one entry", cached)
	}
}

func TestSignOutDuringHydrationDiscardsRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.Favorites = []domain.Title{title(5, domain.MediaKindMovie)}
	_ = f.store.Create(ctx, "u1", &remote)
	f.store.release = make(chan struct{})
	f.store.started = make(chan struct{})

	s := f.start()
	done := make(chan struct{})
	go func() {
		s.Hydrate(ctx, "u1")
		close(done)
	}()

	<-f.store.started
	s.SignOut()
	close(f.store.release)
	<-done
	s.Wait()

	if got := s.Snapshot().Favorites; len(got) != 0 {
		t.Errorf("favorites = %+v, want remote result discarded", got)
	}
	if s.UserID() != "" {
		t.Errorf("UserID = %q, want signed out", s.UserID())
	}
	if f.source.calls != 0 {
		t.Errorf("derivation ran %d source calls after sign-out", f.source.calls)
	}
	if cached := f.local.Load().Favorites; len(cached) != 0 {
		t.Errorf("cache was overwritten by a discarded hydration: %+v", cached)
	}
}

func TestHydrateFailureKeepsCachedLists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.local.SaveLists(domain.Profile{MyList: []domain.Title{title(4, domain.MediaKindTV)}}, domain.FieldMyList)
	f.store.getErr = errors.New("connection refused")

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	snap := s.Snapshot()
	if len(snap.MyList) != 1 || snap.MyList[0].ID != 4 {
		t.Errorf("myList = %+v, want cached list", snap.MyList)
	}
	if len(snap.Notifications) != 0 || f.source.calls != 0 {
		t.Errorf("derivation ran after a failed hydration")
	}
}

func TestFailingFeedStillAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.LastNotificationCheck = 1000
	_ = f.store.Create(ctx, "u1", &remote)
	f.source.err = errors.New("feed down")

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	if got := s.Snapshot().LastNotificationCheck; got != testNow.UnixMilli() {
		t.Errorf("watermark = %d, want %d", got, testNow.UnixMilli())
	}
	doc, _ := f.store.InMemoryProfileStore.Get(ctx, "u1")
	if doc.LastNotificationCheck != testNow.UnixMilli() {
		t.Errorf("remote watermark = %d, want %d", doc.LastNotificationCheck, testNow.UnixMilli())
	}
}

func TestRemoteWriteFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.LastNotificationCheck = testNow.UnixMilli()
	_ = f.store.Create(ctx, "u1", &remote)

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()
	f.store.updateErr = errors.New("timeout")

	c := s.Mutate(domain.RecordWatched{Title: title(3, domain.MediaKindMovie)})
	s.Wait()
	if c.IsZero() {
		t.Fatal("RecordWatched reported no change")
	}
	if got := s.Snapshot().History; len(got) != 1 {
		t.Errorf("history = %+v, want the entry kept locally", got)
	}
	if cached := f.local.Load().History; len(cached) != 1 {
		t.Errorf("cached history = %+v, want one entry", cached)
	}
}

func TestSignedOutMutationStaysLocal(t *testing.T) {
	f := newFixture(t)
	s := f.start()

	s.Mutate(domain.ToggleFavorite{Title: title(1, domain.MediaKindMovie)})
	s.Wait()

	if n := f.store.updateCount(); n != 0 {
		t.Errorf("remote updates = %d, want 0 while signed out", n)
	}
	if cached := f.local.Load().Favorites; len(cached) != 1 {
		t.Errorf("cached favorites = %+v, want one entry", cached)
	}
}

func TestNoOpMutationWritesNothing(t *testing.T) {
	f := newFixture(t)
	s := f.start()

	if c := s.Mutate(domain.MarkNotificationRead{ID: "missing"}); !c.IsZero() {
		t.Errorf("change = %+v, want zero", c)
	}
	if c := s.Mutate(domain.UpdateProgress{TitleID: 42, Percent: 10}); !c.IsZero() {
		t.Errorf("change = %+v, want zero", c)
	}
}

func titleIDs(ts []domain.Title) []int {
	out := make([]int, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}

func sameIDs(a, b []domain.Title) bool {
	return fmt.Sprint(titleIDs(a)) == fmt.Sprint(titleIDs(b))
}

func TestSignedOutBurstKeepsCacheCurrent(t *testing.T) {
	for run := 0; run < 50; run++ {
		f := newFixture(t)
		s := f.start()

		for i := 1; i <= 8; i++ {
			s.Mutate(domain.AddFavorite{Title: title(i, domain.MediaKindMovie)})
		}
		s.Wait()

		want := s.Snapshot().Favorites
		if got := f.local.Load().Favorites; !sameIDs(got, want) {
			t.Fatalf("run %d: cached favorites = %v, want %v", run, titleIDs(got), titleIDs(want))
		}
	}
}

func TestSignedInBurstKeepsStoresInStep(t *testing.T) {
	ctx := context.Background()
	for run := 0; run < 50; run++ {
		f := newFixture(t)
		remote := domain.NewProfile()
		remote.LastNotificationCheck = testNow.UnixMilli()
		_ = f.store.Create(ctx, "u1", &remote)

		s := f.start()
		s.Hydrate(ctx, "u1")

		a, b := title(1, domain.MediaKindMovie), title(2, domain.MediaKindTV)
		s.Mutate(domain.ToggleFavorite{Title: a})
		s.Mutate(domain.ToggleWatchlist{Title: b})
		s.Mutate(domain.ToggleFavorite{Title: a})
		s.Mutate(domain.ToggleFavorite{Title: b})
		s.Mutate(domain.ToggleWatchlist{Title: b})
		s.Mutate(domain.ToggleWatchlist{Title: a})
		s.Wait()

		snap := s.Snapshot()
		doc, err := f.store.InMemoryProfileStore.Get(ctx, "u1")
		if err != nil {
			t.Fatalf("run %d: remote document: %v", run, err)
		}
		if !sameIDs(doc.Favorites, snap.Favorites) || !sameIDs(doc.MyList, snap.MyList) {
			t.Fatalf("run %d: remote favorites=%v myList=%v, want %v %v", run,
				titleIDs(doc.Favorites), titleIDs(doc.MyList), titleIDs(snap.Favorites), titleIDs(snap.MyList))
		}
		if len(doc.Notifications) != len(snap.Notifications) {
			t.Fatalf("run %d: remote notifications = %d, want %d", run, len(doc.Notifications), len(snap.Notifications))
		}
		cached := f.local.Load()
		if !sameIDs(cached.Favorites, snap.Favorites) || !sameIDs(cached.MyList, snap.MyList) {
			t.Fatalf("run %d: cached favorites=%v myList=%v, want %v %v", run,
				titleIDs(cached.Favorites), titleIDs(cached.MyList), titleIDs(snap.Favorites), titleIDs(snap.MyList))
		}
	}
}

func TestHydrateWriteBackPrecedesLaterMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.Favorites = []domain.Title{title(2, domain.MediaKindMovie)}
	remote.LastNotificationCheck = testNow.UnixMilli()
	_ = f.store.Create(ctx, "u1", &remote)

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Mutate(domain.AddFavorite{Title: title(3, domain.MediaKindMovie)})
	s.Wait()

	want := s.Snapshot().Favorites
	if len(want) != 2 {
		t.Fatalf("favorites = %v, want two entries", titleIDs(want))
	}
	if got := f.local.Load().Favorites; !sameIDs(got, want) {
		t.Errorf("cached favorites = %v, want %v", titleIDs(got), titleIDs(want))
	}
}

func TestRemoteWithoutWatermarkStartsAtNow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	remote := domain.NewProfile()
	remote.Favorites = []domain.Title{title(1, domain.MediaKindMovie)}
	_ = f.store.Create(ctx, "u1", &remote)
	f.source.movies = []domain.NewContentItem{
		{ID: 1, Name: "Old", Date: testNow.AddDate(-2, 0, 0).Format("2006-01-02")},
		{ID: 2, Name: "Last Week", Date: testNow.AddDate(0, 0, -7).Format("2006-01-02")},
	}

	s := f.start()
	s.Hydrate(ctx, "u1")
	s.Wait()

	snap := s.Snapshot()
	if len(snap.Notifications) != 0 {
		t.Errorf("notifications = %+v, want none for a document without a watermark", snap.Notifications)
	}
	if snap.LastNotificationCheck != testNow.UnixMilli() {
		t.Errorf("watermark = %d, want %d", snap.LastNotificationCheck, testNow.UnixMilli())
	}
}
