package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"JCLINE_TMDB_API_KEY":         "tmdb.api_key",
		"JCLINE_OIDC_CLIENT_ID":       "oidc.client_id",
		"JCLINE_DATABASE_URL":         "database_url",
		"JCLINE_CONTROL_PLANE_URL":    "control_plane_url",
		"JCLINE_FEED_EPISODE_LOOKUPS": "feed.episode_lookups",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadWebFrontendDefaults(t *testing.T) {
	cfg, err := LoadWebFrontend("")
	if err != nil {
		t.Fatalf("LoadWebFrontend: %v", err)
	}
	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want 3000", cfg.Port)
	}
	if cfg.TMDB.Timeout != 10*time.Second {
		t.Errorf("TMDB.Timeout = %v, want 10s", cfg.TMDB.Timeout)
	}
	if cfg.Feed.Source != "tmdb" {
		t.Errorf("Feed.Source = %q, want tmdb", cfg.Feed.Source)
	}
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frontend.yaml")
	body := []byte("port: \"4000\"\ntmdb:\n  api_key: from-file\nfeed:\n  source: file\n  path: /tmp/feed.yaml\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JCLINE_TMDB_API_KEY", "from-env")

	cfg, err := LoadWebFrontend(path)
	if err != nil {
		t.Fatalf("LoadWebFrontend: %v", err)
	}
	if cfg.Port != "4000" {
		t.Errorf("Port = %q, want 4000", cfg.Port)
	}
	if cfg.TMDB.APIKey != "from-env" {
		t.Errorf("TMDB.APIKey = %q, want from-env", cfg.TMDB.APIKey)
	}
	if cfg.Feed.Path != "/tmp/feed.yaml" {
		t.Errorf("Feed.Path = %q", cfg.Feed.Path)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("JCLINE_FEED_SOURCE", "carrier-pigeon")
	if _, err := LoadWebFrontend(""); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestControlPlaneRequiresDatabase(t *testing.T) {
	if _, err := LoadControlPlane(""); err == nil {
		t.Fatal("expected error without database_url")
	}
	t.Setenv("JCLINE_DATABASE_URL", "postgres://localhost/jcline")
	t.Setenv("JCLINE_CORS_ORIGINS", "http://a.test, http://b.test")
	cfg, err := LoadControlPlane("")
	if err != nil {
		t.Fatalf("LoadControlPlane: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}
