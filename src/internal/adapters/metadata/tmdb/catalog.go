package tmdb

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jcline/jcline/src/internal/domain"
)

const (
	GenreAnimation = 16
	// GenreAnime is a pseudo genre: animation restricted to Japanese originals.
	GenreAnime = 1000
)

type pageResponse struct {
	Results []domain.Title `json:"results"`
}

func tagKind(titles []domain.Title, kind domain.MediaKind) []domain.Title {
	for i := range titles {
		titles[i].MediaKind = kind
	}
	return titles
}

func (c *TMDBClient) list(ctx context.Context, name, endpoint string, params url.Values, kind domain.MediaKind) ([]domain.Title, error) {
	var res pageResponse
	if err := c.get(ctx, name, endpoint, params, &res); err != nil {
		return nil, err
	}
	if res.Results == nil {
		res.Results = []domain.Title{}
	}
	if kind != "" {
		return tagKind(res.Results, kind), nil
	}
	return res.Results, nil
}

func checkKind(kind domain.MediaKind) error {
	if !kind.Valid() {
		return fmt.Errorf("tmdb: unknown media kind %q", kind)
	}
	return nil
}

// Trending returns today's trending titles. kind is "all", "movie" or "tv";
// records keep the media_type TMDB reports.
func (c *TMDBClient) Trending(ctx context.Context, kind string) ([]domain.Title, error) {
	switch kind {
	case "":
		kind = "all"
	case "all", string(domain.MediaKindMovie), string(domain.MediaKindTV):
	default:
		return nil, fmt.Errorf("tmdb: unknown trending kind %q", kind)
	}
	titles, err := c.list(ctx, "trending", "/trending/"+kind+"/day", nil, "")
	if err != nil {
		return nil, err
	}
	if kind != "all" {
		return tagKind(titles, domain.MediaKind(kind)), nil
	}
	return titles, nil
}

func (c *TMDBClient) Popular(ctx context.Context, kind domain.MediaKind) ([]domain.Title, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return c.list(ctx, "popular", "/"+string(kind)+"/popular", nil, kind)
}

func (c *TMDBClient) TopRated(ctx context.Context, kind domain.MediaKind) ([]domain.Title, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return c.list(ctx, "top_rated", "/"+string(kind)+"/top_rated", nil, kind)
}

func (c *TMDBClient) NowPlaying(ctx context.Context) ([]domain.Title, error) {
	return c.list(ctx, "now_playing", "/movie/now_playing", nil, domain.MediaKindMovie)
}

func (c *TMDBClient) OnTheAir(ctx context.Context) ([]domain.Title, error) {
	return c.list(ctx, "on_the_air", "/tv/on_the_air", nil, domain.MediaKindTV)
}

// Upcoming lists movies releasing on or after dateFloor (YYYY-MM-DD), soonest first.
func (c *TMDBClient) Upcoming(ctx context.Context, dateFloor string) ([]domain.Title, error) {
	params := url.Values{}
	params.Set("primary_release_date.gte", dateFloor)
	params.Set("sort_by", "primary_release_date.asc")
	return c.list(ctx, "upcoming", "/discover/movie", params, domain.MediaKindMovie)
}

func (c *TMDBClient) Details(ctx context.Context, kind domain.MediaKind, id int) (*domain.TitleDetails, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var d domain.TitleDetails
	if err := c.get(ctx, "details", "/"+string(kind)+"/"+strconv.Itoa(id), nil, &d); err != nil {
		return nil, err
	}
	d.MediaKind = kind
	for _, g := range d.Genres {
		d.GenreIDs = append(d.GenreIDs, g.ID)
	}
	return &d, nil
}

func (c *TMDBClient) SeasonEpisodes(ctx context.Context, id, season int) ([]domain.Episode, error) {
	var res struct {
		Episodes []domain.Episode `json:"episodes"`
	}
	endpoint := fmt.Sprintf("/tv/%d/season/%d", id, season)
	if err := c.get(ctx, "season", endpoint, nil, &res); err != nil {
		return nil, err
	}
	if res.Episodes == nil {
		res.Episodes = []domain.Episode{}
	}
	return res.Episodes, nil
}

// SearchMulti searches movies and shows. People are dropped.
func (c *TMDBClient) SearchMulti(ctx context.Context, query string) ([]domain.Title, error) {
	params := url.Values{}
	params.Set("query", query)
	all, err := c.list(ctx, "search", "/search/multi", params, "")
	if err != nil {
		return nil, err
	}
	out := make([]domain.Title, 0, len(all))
	for _, t := range all {
		if t.MediaKind.Valid() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *TMDBClient) Genres(ctx context.Context, kind domain.MediaKind) ([]domain.Genre, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	var res struct {
		Genres []domain.Genre `json:"genres"`
	}
	if err := c.get(ctx, "genres", "/genre/"+string(kind)+"/list", nil, &res); err != nil {
		return nil, err
	}
	return res.Genres, nil
}

// Discover browses by genre. genreID 0 means no filter; GenreAnime maps to
// animation with original language ja.
func (c *TMDBClient) Discover(ctx context.Context, kind domain.MediaKind, genreID int) ([]domain.Title, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	params := url.Values{}
	switch {
	case genreID == GenreAnime:
		params.Set("with_genres", strconv.Itoa(GenreAnimation))
		params.Set("with_original_language", "ja")
	case genreID > 0:
		params.Set("with_genres", strconv.Itoa(genreID))
	}
	titles, err := c.list(ctx, "discover", "/discover/"+string(kind), params, kind)
	if err != nil {
		return nil, err
	}
	if genreID == GenreAnime {
		for i := range titles {
			titles[i].IsAnime = true
		}
	}
	return titles, nil
}
