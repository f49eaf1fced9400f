// Package feed provides the new-content candidates used for notification
// derivation.
package feed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/ports"
)

// TMDBSource derives candidates from the live catalog: now-playing movies by
// release date, on-the-air shows by the air date of their latest episode.
type TMDBSource struct {
	catalog ports.CatalogClient
	// lookups caps the per-show details requests made for NewEpisodes.
	lookups int
	log     zerolog.Logger
}

func NewTMDBSource(catalog ports.CatalogClient, lookups int) *TMDBSource {
	return &TMDBSource{catalog: catalog, lookups: lookups, log: logging.Component("feed")}
}

func (s *TMDBSource) NewMovies(ctx context.Context) ([]domain.NewContentItem, error) {
	titles, err := s.catalog.NowPlaying(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]domain.NewContentItem, 0, len(titles))
	for _, t := range titles {
		items = append(items, domain.NewContentItem{ID: t.ID, Name: t.DisplayName(), Date: t.ReleaseDate})
	}
	return items, nil
}

func (s *TMDBSource) NewEpisodes(ctx context.Context) ([]domain.NewContentItem, error) {
	shows, err := s.catalog.OnTheAir(ctx)
	if err != nil {
		return nil, err
	}
	if len(shows) > s.lookups {
		shows = shows[:s.lookups]
	}
	items := make([]domain.NewContentItem, 0, len(shows))
	for _, show := range shows {
		d, err := s.catalog.Details(ctx, domain.MediaKindTV, show.ID)
		if err != nil {
			// One broken show should not hide the others.
			s.log.Warn().Err(err).Int("show", show.ID).Msg("show details lookup failed")
			continue
		}
		items = append(items, domain.NewContentItem{ID: show.ID, Name: show.DisplayName(), Date: d.LastAirDate})
	}
	return items, nil
}
