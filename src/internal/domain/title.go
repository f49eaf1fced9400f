package domain

import (
	"strconv"
	"time"
)

type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
)

func (k MediaKind) Valid() bool {
	return k == MediaKindMovie || k == MediaKindTV
}

// Title is a catalog record as returned by TMDB. Identity is (ID, MediaKind).
type Title struct {
	ID           int       `json:"id" validate:"gt=0"`
	MediaKind    MediaKind `json:"media_type" validate:"oneof=movie tv"`
	Title        string    `json:"title,omitempty"` // Movies
	Name         string    `json:"name,omitempty"`  // TV
	Overview     string    `json:"overview"`
	PosterPath   string    `json:"poster_path"`
	BackdropPath string    `json:"backdrop_path"`
	ReleaseDate  string    `json:"release_date,omitempty"`
	FirstAirDate string    `json:"first_air_date,omitempty"`
	LastAirDate  string    `json:"last_air_date,omitempty"`
	VoteAverage  float64   `json:"vote_average"`
	GenreIDs     []int     `json:"genre_ids,omitempty"`
	IsAnime      bool      `json:"isAnime,omitempty"`
}

type TitleKey struct {
	ID   int
	Kind MediaKind
}

func (k TitleKey) String() string {
	return string(k.Kind) + ":" + strconv.Itoa(k.ID)
}

func (t Title) Key() TitleKey {
	return TitleKey{ID: t.ID, Kind: t.MediaKind}
}

func (t Title) DisplayName() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type TitleDetails struct {
	Title
	Genres           []Genre  `json:"genres"`
	Runtime          int      `json:"runtime,omitempty"`
	NumberOfSeasons  int      `json:"number_of_seasons,omitempty"`
	NumberOfEpisodes int      `json:"number_of_episodes,omitempty"`
	Tagline          string   `json:"tagline,omitempty"`
	Status           string   `json:"status"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	Seasons          []Season `json:"seasons,omitempty"`
}

type Season struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"poster_path"`
	SeasonNumber int    `json:"season_number"`
	EpisodeCount int    `json:"episode_count"`
}

type Episode struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	EpisodeNumber int    `json:"episode_number"`
	SeasonNumber  int    `json:"season_number"`
	StillPath     string `json:"still_path"`
}

// NewContentItem is a candidate for a "new content" notification.
type NewContentItem struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Date string `json:"date" yaml:"date"`
}

// ParseCatalogDate parses a catalog date into epoch milliseconds.
// Date-only values are taken as UTC midnight.
func ParseCatalogDate(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UnixMilli(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), true
	}
	return 0, false
}
