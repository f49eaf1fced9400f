package profileapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/metrics"
	"github.com/jcline/jcline/src/internal/ports"
)

const maxBodyBytes = 4 << 20

// Server exposes a ProfileStore over HTTP. Every route expects the auth
// middleware to have stored the caller's subject with WithSubject.
type Server struct {
	store ports.ProfileStore
	log   zerolog.Logger
}

func NewServer(store ports.ProfileStore) *Server {
	return &Server{store: store, log: logging.Component("profileapi")}
}

func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1/profiles/{userID}", func(r chi.Router) {
		r.Use(s.requireOwner)
		r.Get("/", s.handleGet)
		r.Put("/", s.handlePut)
		r.Patch("/", s.handlePatch)
	})
}

func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub := SubjectFromContext(r.Context())
		if sub == "" {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if sub != chi.URLParam(r, "userID") {
			writeError(w, http.StatusForbidden, "profile belongs to another user")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	p, err := s.store.Get(r.Context(), userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("load profile")
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var p domain.Profile
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile document")
		return
	}
	p.Normalize()

	if err := s.store.Create(r.Context(), userID, &p); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("create profile")
		writeError(w, http.StatusInternalServerError, "failed to store profile")
		return
	}
	s.log.Info().Str("user", userID).Msg("profile created")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var u domain.ProfileUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile update")
		return
	}
	if u.IsEmpty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	err := s.store.UpdateFields(r.Context(), userID, u)
	for _, f := range u.Fields() {
		metrics.RecordStoreWrite("profile_store", string(f), err)
	}
	if errors.Is(err, domain.ErrProfileNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("update profile")
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
