package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment overrides: JCLINE_TMDB_API_KEY -> tmdb.api_key.
const EnvPrefix = "JCLINE_"

var validate = validator.New()

// ControlPlaneConfig holds configuration for the remote profile service
type ControlPlaneConfig struct {
	DatabaseURL string     `koanf:"database_url" validate:"required"`
	Port        string     `koanf:"port" validate:"required"`
	CORSOrigins []string   `koanf:"cors_origins"`
	OIDC        OIDCConfig `koanf:"oidc"`
	Log         LogConfig  `koanf:"log"`
}

// WebFrontendConfig holds configuration for the device agent
type WebFrontendConfig struct {
	Port            string       `koanf:"port" validate:"required"`
	ControlPlaneURL string       `koanf:"control_plane_url" validate:"required,url"`
	DataDir         string       `koanf:"data_dir" validate:"required"`
	OIDC            OIDCConfig   `koanf:"oidc"`
	TMDB            TMDBConfig   `koanf:"tmdb"`
	Player          PlayerConfig `koanf:"player"`
	Feed            FeedConfig   `koanf:"feed"`
	Log             LogConfig    `koanf:"log"`
}

type OIDCConfig struct {
	ProviderURL  string `koanf:"provider_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
}

// Enabled reports whether an identity provider is configured. Without one the
// binaries run in anonymous mode.
func (c OIDCConfig) Enabled() bool {
	return c.ProviderURL != "" && c.ClientID != ""
}

type TMDBConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	ImageBaseURL      string        `koanf:"image_base_url" validate:"required,url"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"gte=1"`
	Timeout           time.Duration `koanf:"timeout"`
}

type PlayerConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
}

type FeedConfig struct {
	// Source is "tmdb" (live catalog) or "file" (a YAML feed at Path).
	Source         string `koanf:"source" validate:"oneof=tmdb file"`
	Path           string `koanf:"path" validate:"required_if=Source file"`
	EpisodeLookups int    `koanf:"episode_lookups" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
}

func defaultLog() LogConfig {
	return LogConfig{Level: "info", Format: "json"}
}

func DefaultControlPlane() ControlPlaneConfig {
	return ControlPlaneConfig{
		Port: "8080",
		Log:  defaultLog(),
	}
}

func DefaultWebFrontend() WebFrontendConfig {
	return WebFrontendConfig{
		Port:            "3000",
		ControlPlaneURL: "http://localhost:8080",
		DataDir:         "./data/cache",
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			RequestsPerSecond: 20,
			Burst:             10,
			Timeout:           10 * time.Second,
		},
		Player: PlayerConfig{BaseURL: "https://api.cinetaro.buzz"},
		Feed:   FeedConfig{Source: "tmdb", EpisodeLookups: 5},
		Log:    defaultLog(),
	}
}

// LoadControlPlane layers defaults, the optional YAML file at path and the
// environment, then validates the result.
func LoadControlPlane(path string) (*ControlPlaneConfig, error) {
	cfg := DefaultControlPlane()
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadWebFrontend(path string) (*WebFrontendConfig, error) {
	cfg := DefaultWebFrontend()
	if err := load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func load(path string, cfg interface{}) error {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("failed to open config file %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	splitList(k, "cors_origins")

	if err := k.Unmarshal("", cfg); err != nil {
		return fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

var envSections = []string{"oidc", "tmdb", "player", "feed", "log"}

// envTransformFunc maps JCLINE_OIDC_CLIENT_ID to oidc.client_id and
// JCLINE_DATABASE_URL to database_url.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	for _, section := range envSections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// splitList turns a comma-separated env value into a slice.
func splitList(k *koanf.Koanf, path string) {
	s, ok := k.Get(path).(string)
	if !ok || s == "" {
		return
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	_ = k.Set(path, out)
}
