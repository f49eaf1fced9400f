package services

import (
	"errors"
	"testing"

	"github.com/jcline/jcline/src/internal/adapters/memory"
	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/ports"
)

func TestLocalProfileMalformedEntriesFallBack(t *testing.T) {
	cache := memory.NewCache()
	_ = cache.Set(keyFavorites, []byte("{not json"))
	_ = cache.Set(keyMyList, []byte(`[{"id":3,"media_type":"tv","name":"Show"}]`))

	p := NewLocalProfile(cache).Load()
	if p.Favorites == nil || len(p.Favorites) != 0 {
		t.Errorf("favorites = %#v, want empty list", p.Favorites)
	}
	if len(p.MyList) != 1 || p.MyList[0].ID != 3 {
		t.Errorf("myList = %+v", p.MyList)
	}
	if p.History == nil || p.Notifications == nil {
		t.Error("missing lists should load as empty, not nil")
	}
}

func TestLocalProfileSaveListsIgnoresRemoteOnlyFields(t *testing.T) {
	cache := memory.NewCache()
	l := NewLocalProfile(cache)
	p := domain.NewProfile()
	p.History = []domain.HistoryEntry{{Title: domain.Title{ID: 1}, Progress: 20}}
	p.Notifications = []domain.Notification{{ID: "x"}}

	if err := l.SaveLists(p, domain.FieldHistory, domain.FieldNotifications); err != nil {
		t.Fatalf("SaveLists: %v", err)
	}
	if got := l.Load().History; len(got) != 1 || got[0].Progress != 20 {
		t.Errorf("history = %+v", got)
	}
	if _, err := cache.Get("notifications"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("notifications were cached: %v", err)
	}
}

func TestLocalProfilePreferences(t *testing.T) {
	cache := memory.NewCache()
	l := NewLocalProfile(cache)

	if got := l.Preferences(); got != domain.DefaultPreferences() {
		t.Errorf("defaults = %+v", got)
	}

	want := domain.Preferences{Theme: domain.ThemeLight, NotifyMovies: false, NotifyEpisodes: true, NotifySecurity: false}
	if err := l.SavePreferences(want); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}
	if got := l.Preferences(); got != want {
		t.Errorf("preferences = %+v, want %+v", got, want)
	}
	raw, _ := cache.Get(keyTheme)
	if string(raw) != "light" {
		t.Errorf("theme stored as %q, want raw string", raw)
	}

	_ = cache.Set(keyTheme, []byte("neon"))
	if got := l.Preferences().Theme; got != domain.ThemeDark {
		t.Errorf("unknown theme = %q, want dark", got)
	}
}

func TestLocalProfileRatings(t *testing.T) {
	cache := memory.NewCache()
	l := NewLocalProfile(cache)

	if got := l.Rating(7); got != 0 {
		t.Errorf("unrated = %d, want 0", got)
	}
	if err := l.SetRating(7, 4); err != nil {
		t.Fatalf("SetRating: %v", err)
	}
	if got := l.Rating(7); got != 4 {
		t.Errorf("rating = %d, want 4", got)
	}
	if err := l.SetRating(7, 6); !errors.Is(err, ErrInvalidRating) {
		t.Errorf("err = %v, want ErrInvalidRating", err)
	}
	if err := l.SetRating(7, 0); err != nil {
		t.Fatalf("SetRating(0): %v", err)
	}
	if _, err := cache.Get(keyRatingPrefix + "7"); !errors.Is(err, ports.ErrCacheMiss) {
		t.Errorf("clearing a rating should delete the key, got %v", err)
	}
}

func TestLocalProfileClear(t *testing.T) {
	cache := memory.NewCache()
	l := NewLocalProfile(cache)
	_ = l.SaveLists(domain.Profile{Favorites: []domain.Title{{ID: 1}}}, domain.FieldFavorites)
	_ = l.SetRating(1, 3)

	if err := l.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(l.Load().Favorites) != 0 || l.Rating(1) != 0 {
		t.Error("cache not wiped")
	}
}
