package ports

import (
	"context"
	"errors"

	"github.com/jcline/jcline/src/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// LocalCache is the device key-value store. Values are opaque bytes.
type LocalCache interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Clear wipes every key on the device.
	Clear() error
}

// ProfileStore holds one profile document per user.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Create(ctx context.Context, userID string, profile *domain.Profile) error
	// UpdateFields writes only the fields present in the update. It fails with
	// domain.ErrProfileNotFound when the user has no document.
	UpdateFields(ctx context.Context, userID string, update domain.ProfileUpdate) error
}

type UserRepository interface {
	FindOrCreate(ctx context.Context, id, email string) (*domain.User, error)
}

type CatalogClient interface {
	Trending(ctx context.Context, kind string) ([]domain.Title, error)
	Popular(ctx context.Context, kind domain.MediaKind) ([]domain.Title, error)
	TopRated(ctx context.Context, kind domain.MediaKind) ([]domain.Title, error)
	NowPlaying(ctx context.Context) ([]domain.Title, error)
	OnTheAir(ctx context.Context) ([]domain.Title, error)
	Upcoming(ctx context.Context, dateFloor string) ([]domain.Title, error)
	Details(ctx context.Context, kind domain.MediaKind, id int) (*domain.TitleDetails, error)
	SeasonEpisodes(ctx context.Context, id, season int) ([]domain.Episode, error)
	SearchMulti(ctx context.Context, query string) ([]domain.Title, error)
	Genres(ctx context.Context, kind domain.MediaKind) ([]domain.Genre, error)
	Discover(ctx context.Context, kind domain.MediaKind, genreID int) ([]domain.Title, error)
}

// NewContentSource lists recently released titles for notification derivation.
type NewContentSource interface {
	NewMovies(ctx context.Context) ([]domain.NewContentItem, error)
	NewEpisodes(ctx context.Context) ([]domain.NewContentItem, error)
}

// IdentityProvider reports the signed-in user. The observer is called with the
// current user right away and again on every change; nil means signed out.
type IdentityProvider interface {
	ObserveSession(fn func(*domain.User)) (cancel func())
	SignOut(ctx context.Context) error
}

// Publisher receives every new profile snapshot.
type Publisher interface {
	Publish(snapshot domain.ProfileView)
}
