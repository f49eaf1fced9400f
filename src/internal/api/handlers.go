// Package api is the JSON surface of the device agent consumed by the browser.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/ports"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// ProfileService is the synchronizer as seen by the handlers.
type ProfileService interface {
	Snapshot() domain.Profile
	UserID() string
	Mutate(op domain.Operation) domain.Change
}

// DeviceStore holds device-only settings.
type DeviceStore interface {
	Preferences() domain.Preferences
	SavePreferences(prefs domain.Preferences) error
	Rating(titleID int) int
	SetRating(titleID, stars int) error
	Clear() error
}

type SessionControl interface {
	SignOut(ctx context.Context) error
}

type EmbedBuilder interface {
	MovieEmbedURL(id int) string
	TVEmbedURL(id, season, episode int) string
}

type Deps struct {
	Profile ProfileService
	Device  DeviceStore
	Session SessionControl
	Catalog ports.CatalogClient
	Player  EmbedBuilder
}

type Handler struct {
	profile ProfileService
	device  DeviceStore
	session SessionControl
	catalog ports.CatalogClient
	player  EmbedBuilder
	log     zerolog.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		profile: d.Profile,
		device:  d.Device,
		session: d.Session,
		catalog: d.Catalog,
		player:  d.Player,
		log:     logging.Component("api"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/state", h.State)

	r.Group(func(r chi.Router) {
		r.Use(h.requireSession)

		r.Post("/favorites/toggle", h.ToggleFavorite)
		r.Post("/watchlist/toggle", h.ToggleWatchlist)

		r.Post("/history", h.RecordWatched)
		r.Put("/history/{id}/progress", h.UpdateProgress)
		r.Delete("/history", h.ClearHistory)

		r.Post("/notifications/read-all", h.MarkAllRead)
		r.Post("/notifications/{id}/read", h.MarkRead)
		r.Delete("/notifications/{id}", h.RemoveNotification)
		r.Delete("/notifications", h.ClearNotifications)

		r.Post("/signout", h.SignOut)
	})

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Get("/ratings/{id}", h.GetRating)
	r.Put("/ratings/{id}", h.PutRating)
	r.Post("/cache/clear", h.ClearCache)

	r.Route("/catalog", h.catalogRoutes)
	r.Get("/embed/{kind}/{id}", h.Embed)
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.profile.UserID() == "" {
			respondError(w, http.StatusUnauthorized, "not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) view() domain.ProfileView {
	return h.profile.Snapshot().View(h.profile.UserID() != "")
}

func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.view())
}

// mutationResponse reports whether the operation changed anything along with
// the resulting state.
type mutationResponse struct {
	Changed bool               `json:"changed"`
	Active  bool               `json:"active,omitempty"`
	State   domain.ProfileView `json:"state"`
}

func (h *Handler) mutate(w http.ResponseWriter, op domain.Operation, active func(domain.ChangeKind) bool) {
	c := h.profile.Mutate(op)
	resp := mutationResponse{Changed: !c.IsZero(), State: h.view()}
	if active != nil {
		resp.Active = active(c.Kind)
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.mutate(w, domain.ToggleFavorite{Title: req.Title}, func(k domain.ChangeKind) bool {
		return k == domain.ChangeFavoriteAdded
	})
}

func (h *Handler) ToggleWatchlist(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.mutate(w, domain.ToggleWatchlist{Title: req.Title}, func(k domain.ChangeKind) bool {
		return k == domain.ChangeWatchlistAdded
	})
}

func (h *Handler) RecordWatched(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.mutate(w, domain.RecordWatched{Title: req.Title}, nil)
}

func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req progressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.mutate(w, domain.UpdateProgress{TitleID: id, Percent: *req.Progress}, nil)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, domain.ClearHistory{}, nil)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, domain.MarkNotificationRead{ID: chi.URLParam(r, "id")}, nil)
}

func (h *Handler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, domain.MarkAllRead{}, nil)
}

func (h *Handler) RemoveNotification(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, domain.RemoveNotification{ID: chi.URLParam(r, "id")}, nil)
}

func (h *Handler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, domain.ClearNotifications{}, nil)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SignOut(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("sign out")
		respondError(w, http.StatusInternalServerError, "sign out failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.device.Preferences())
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var prefs domain.Preferences
	if !decodeAndValidate(w, r, &prefs) {
		return
	}
	if err := h.device.SavePreferences(prefs); err != nil {
		h.log.Error().Err(err).Str("store", "local").Msg("save preferences")
		respondError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	respondJSON(w, http.StatusOK, h.device.Preferences())
}

type ratingResponse struct {
	TitleID int `json:"titleId"`
	Stars   int `json:"stars"`
}

func (h *Handler) GetRating(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, ratingResponse{TitleID: id, Stars: h.device.Rating(id)})
}

func (h *Handler) PutRating(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ratingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.device.SetRating(id, *req.Stars); err != nil {
		h.log.Error().Err(err).Int("title", id).Msg("save rating")
		respondError(w, http.StatusInternalServerError, "failed to save rating")
		return
	}
	respondJSON(w, http.StatusOK, ratingResponse{TitleID: id, Stars: h.device.Rating(id)})
}

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.device.Clear(); err != nil {
		h.log.Error().Err(err).Str("store", "local").Msg("clear cache")
		respondError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Embed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var url string
	switch domain.MediaKind(chi.URLParam(r, "kind")) {
	case domain.MediaKindMovie:
		url = h.player.MovieEmbedURL(id)
	case domain.MediaKindTV:
		url = h.player.TVEmbedURL(id, queryInt(r, "season", 1), queryInt(r, "episode", 1))
	default:
		respondError(w, http.StatusBadRequest, "kind must be movie or tv")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			respondError(w, http.StatusBadRequest, "invalid "+verrs[0].Namespace())
			return false
		}
		respondError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
