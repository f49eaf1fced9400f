package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jcline/jcline/src/internal/adapters/badger"
	"github.com/jcline/jcline/src/internal/adapters/feed"
	"github.com/jcline/jcline/src/internal/adapters/metadata/tmdb"
	"github.com/jcline/jcline/src/internal/adapters/oidc"
	"github.com/jcline/jcline/src/internal/adapters/profileapi"
	"github.com/jcline/jcline/src/internal/adapters/websocket"
	"github.com/jcline/jcline/src/internal/api"
	"github.com/jcline/jcline/src/internal/config"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/ports"
	"github.com/jcline/jcline/src/internal/services"
	"github.com/jcline/jcline/src/internal/supervisor"
)

func main() {
	configPath := flag.String("config", os.Getenv("JCLINE_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadWebFrontend(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logging.Info().Str("port", cfg.Port).Str("control_plane", cfg.ControlPlaneURL).Msg("starting jcline web frontend")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Device cache
	cache, err := badger.Open(cfg.DataDir)
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open local cache")
	}
	defer cache.Close()
	local := services.NewLocalProfile(cache)

	// Identity and remote profile store
	session, err := oidc.NewSession(ctx, cfg.OIDC)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to init identity provider")
	}
	remote := profileapi.NewClient(cfg.ControlPlaneURL, session)

	// Catalog and new-content feed
	catalog := tmdb.NewTMDBClient(tmdb.Config{
		APIKey:            cfg.TMDB.APIKey,
		BaseURL:           cfg.TMDB.BaseURL,
		ImageBaseURL:      cfg.TMDB.ImageBaseURL,
		RequestsPerSecond: cfg.TMDB.RequestsPerSecond,
		Burst:             cfg.TMDB.Burst,
		Timeout:           cfg.TMDB.Timeout,
	})
	var content ports.NewContentSource
	switch cfg.Feed.Source {
	case "file":
		content = feed.NewFileSource(cfg.Feed.Path)
	default:
		content = feed.NewTMDBSource(catalog, cfg.Feed.EpisodeLookups)
	}
	logging.Info().Str("source", cfg.Feed.Source).Msg("new-content feed configured")

	// Profile state
	sync := services.NewSynchronizer(local, remote, content)
	services.NewNotifier(sync).Attach(sync)
	hub := websocket.NewHub()
	sync.AddPublisher(hub)
	sessions := services.NewSessionManager(session, sync)

	handler := api.NewHandler(api.Deps{
		Profile: sync,
		Device:  local,
		Session: sessions,
		Catalog: catalog,
		Player:  tmdb.NewPlayer(cfg.Player.BaseURL),
	})
	r := api.NewRouter(handler, api.RouterConfig{RequestsPerMinute: 1200})

	auth := NewAuthHandlers(session, sessions)
	r.Get("/auth/login", auth.HandleLogin)
	r.Get("/auth/callback", auth.HandleCallback)
	r.Post("/auth/logout", auth.HandleLogout)
	r.Get("/ws", hub.Handler(nil))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sup := supervisor.New("webfrontend", supervisor.DefaultConfig())
	sup.Add(supervisor.NewHTTPServerService(srv, 15*time.Second))
	sup.Add(hub)
	sup.Add(sessions)

	logging.Info().Str("addr", srv.Addr).Msg("web frontend listening")
	if err := sup.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor stopped")
	}

	// Let pending cache and profile writes land before the cache closes.
	sessions.Wait()
	sync.Wait()
	logging.Info().Msg("web frontend stopped")
}
