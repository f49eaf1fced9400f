package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcline/jcline/src/internal/adapters/postgres"
	"github.com/jcline/jcline/src/internal/adapters/profileapi"
	"github.com/jcline/jcline/src/internal/api"
	"github.com/jcline/jcline/src/internal/config"
	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
)

func main() {
	configPath := flag.String("config", os.Getenv("JCLINE_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadControlPlane(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().Str("port", cfg.Port).Msg("starting jcline control plane")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	users := postgres.NewUserRepo(db)
	if err := users.InitSchema(); err != nil {
		logging.Fatal().Err(err).Msg("failed to init user schema")
	}
	profiles := postgres.NewProfileRepo(db)
	if err := profiles.InitSchema(); err != nil {
		logging.Fatal().Err(err).Msg("failed to init profile schema")
	}
	logging.Info().Msg("connected to postgres")

	auth := NewAuthMiddleware(ctx, users, cfg.OIDC)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "PUT", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(600, time.Minute))
		r.Use(api.Metrics)
		r.Use(auth.RequireAuth)

		profileapi.NewServer(profiles).Routes(r)
		r.Get("/api/v1/me", handleMe(users))
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Error().Err(err).Msg("server shutdown")
		}
	}()

	logging.Info().Str("addr", srv.Addr).Msg("profile API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal().Err(err).Msg("server failed")
	}
	logging.Info().Msg("control plane stopped")
}

// handleMe returns the provisioned user record of the caller.
func handleMe(users *postgres.PostgresUserRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := users.GetByID(r.Context(), profileapi.SubjectFromContext(r.Context()))
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logging.Error().Err(err).Msg("load user")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(user) //nolint:errcheck
	}
}
