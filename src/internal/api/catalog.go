package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jcline/jcline/src/internal/adapters/metadata/tmdb"
	"github.com/jcline/jcline/src/internal/domain"
)

// catalogRoutes passes catalog reads through to the catalog client.
func (h *Handler) catalogRoutes(r chi.Router) {
	r.Get("/trending", h.Trending)
	r.Get("/now-playing", h.NowPlaying)
	r.Get("/on-the-air", h.OnTheAir)
	r.Get("/upcoming", h.Upcoming)
	r.Get("/search", h.Search)

	r.Get("/tv/{id}/season/{season}", h.Season)
	r.Get("/{kind}/popular", h.Popular)
	r.Get("/{kind}/top-rated", h.TopRated)
	r.Get("/{kind}/genres", h.Genres)
	r.Get("/{kind}/discover", h.Discover)
	r.Get("/{kind}/{id}", h.Details)
}

type listResponse struct {
	Results []domain.Title `json:"results"`
}

func (h *Handler) respondTitles(w http.ResponseWriter, titles []domain.Title, err error) {
	if err != nil {
		h.catalogError(w, err)
		return
	}
	if titles == nil {
		titles = []domain.Title{}
	}
	respondJSON(w, http.StatusOK, listResponse{Results: titles})
}

// catalogError maps catalog failures to responses. The browser shows stale
// rows on any of them.
func (h *Handler) catalogError(w http.ResponseWriter, err error) {
	var httpErr *tmdb.HTTPError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		respondError(w, http.StatusServiceUnavailable, "catalog temporarily unavailable")
	case errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound:
		respondError(w, http.StatusNotFound, "title not found")
	default:
		h.log.Warn().Err(err).Msg("catalog request failed")
		respondError(w, http.StatusBadGateway, "catalog request failed")
	}
}

func pathKind(w http.ResponseWriter, r *http.Request) (domain.MediaKind, bool) {
	kind := domain.MediaKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		respondError(w, http.StatusBadRequest, "kind must be movie or tv")
		return "", false
	}
	return kind, true
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		kind = "all"
	}
	if err := validate.Var(kind, "oneof=all movie tv"); err != nil {
		respondError(w, http.StatusBadRequest, "kind must be all, movie or tv")
		return
	}
	titles, err := h.catalog.Trending(r.Context(), kind)
	h.respondTitles(w, titles, err)
}

func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	titles, err := h.catalog.Popular(r.Context(), kind)
	h.respondTitles(w, titles, err)
}

func (h *Handler) TopRated(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	titles, err := h.catalog.TopRated(r.Context(), kind)
	h.respondTitles(w, titles, err)
}

func (h *Handler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	titles, err := h.catalog.NowPlaying(r.Context())
	h.respondTitles(w, titles, err)
}

func (h *Handler) OnTheAir(w http.ResponseWriter, r *http.Request) {
	titles, err := h.catalog.OnTheAir(r.Context())
	h.respondTitles(w, titles, err)
}

// Upcoming lists releases from ?from=YYYY-MM-DD, today by default.
func (h *Handler) Upcoming(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().UTC().Format("2006-01-02")
	}
	if err := validate.Var(from, "datetime=2006-01-02"); err != nil {
		respondError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	titles, err := h.catalog.Upcoming(r.Context(), from)
	h.respondTitles(w, titles, err)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.respondTitles(w, nil, nil)
		return
	}
	titles, err := h.catalog.SearchMulti(r.Context(), q)
	h.respondTitles(w, titles, err)
}

func (h *Handler) Genres(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	genres, err := h.catalog.Genres(r.Context(), kind)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]domain.Genre{"genres": genres})
}

// Discover browses ?genre=<id>; 0 or missing lists everything.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	genre := queryInt(r, "genre", 0)
	if genre < 0 {
		respondError(w, http.StatusBadRequest, "invalid genre")
		return
	}
	titles, err := h.catalog.Discover(r.Context(), kind, genre)
	h.respondTitles(w, titles, err)
}

func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	kind, ok := pathKind(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.catalog.Details(r.Context(), kind, id)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) Season(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil || season < 0 {
		respondError(w, http.StatusBadRequest, "invalid season")
		return
	}
	episodes, err := h.catalog.SeasonEpisodes(r.Context(), id, season)
	if err != nil {
		h.catalogError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]domain.Episode{"episodes": episodes})
}
