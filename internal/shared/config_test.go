package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Storage.DataDir != "static/DB" {
			t.Errorf("expected data dir static/DB, got %s", config.Storage.DataDir)
		}

		if config.Storage.DefaultPlaylist != "Favorites" {
			t.Errorf("expected default playlist Favorites, got %s", config.Storage.DefaultPlaylist)
		}

		if config.Server.Port != 5002 {
			t.Errorf("expected server port 5002, got %d", config.Server.Port)
		}

		if config.Covers.Workers != 5 {
			t.Errorf("expected 5 cover workers, got %d", config.Covers.Workers)
		}

		if config.Bot.SessionStore != "memory" {
			t.Errorf("expected memory session store, got %s", config.Bot.SessionStore)
		}
	})

	t.Run("Derived Values", func(t *testing.T) {
		config := DefaultConfig()

		if got := config.Server.Addr(); got != "0.0.0.0:5002" {
			t.Errorf("expected addr 0.0.0.0:5002, got %s", got)
		}
		if got := config.Server.MaxUploadBytes(); got != 50<<20 {
			t.Errorf("expected 50MB upload cap, got %d", got)
		}
		if got := config.Covers.Timeout(); got != 10*time.Second {
			t.Errorf("expected 10s cover timeout, got %v", got)
		}
		if got := config.Bot.Timeout(); got != 30*time.Second {
			t.Errorf("expected 30s bot timeout, got %v", got)
		}

		var zero Config
		if got := zero.Covers.Timeout(); got != 10*time.Second {
			t.Errorf("expected zero-value timeout to default to 10s, got %v", got)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Storage.DataDir != DefaultConfig().Storage.DataDir {
			t.Errorf("created config data dir doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[storage]
data_dir = "/srv/tunebox"
default_playlist = "Liked"

[server]
port = 8080

[covers]
workers = 2
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Storage.DataDir != "/srv/tunebox" {
			t.Errorf("expected data dir /srv/tunebox, got %s", config.Storage.DataDir)
		}
		if config.Storage.DefaultPlaylist != "Liked" {
			t.Errorf("expected default playlist Liked, got %s", config.Storage.DefaultPlaylist)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Covers.Workers != 2 {
			t.Errorf("expected 2 workers, got %d", config.Covers.Workers)
		}
		if config.Covers.SearchURL != "https://itunes.apple.com/search" {
			t.Errorf("expected unset keys to keep defaults, got search url %q", config.Covers.SearchURL)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[server\nport = "), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("LoadConfigOrDefault Missing File", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if config.Server.Port != 5002 {
			t.Errorf("expected default port, got %d", config.Server.Port)
		}
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("Reads Dotenv File", func(t *testing.T) {
		envPath := filepath.Join(t.TempDir(), ".env")
		content := EnvBotToken + "=123:abc\n" + EnvServerURL + "=http://api.local:9000\n"
		if err := os.WriteFile(envPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv(EnvBotToken, "")
		t.Setenv(EnvServerURL, "")
		os.Unsetenv(EnvBotToken)
		os.Unsetenv(EnvServerURL)

		config := DefaultConfig()
		if err := LoadEnv(config, envPath); err != nil {
			t.Fatalf("LoadEnv() error = %v", err)
		}

		if config.Bot.Token != "123:abc" {
			t.Errorf("expected token from .env, got %q", config.Bot.Token)
		}
		if config.Bot.ServerURL != "http://api.local:9000" {
			t.Errorf("expected server url from .env, got %q", config.Bot.ServerURL)
		}
	})

	t.Run("Environment Wins Over Defaults", func(t *testing.T) {
		t.Setenv(EnvWebAppURL, "https://app.example.com")

		config := DefaultConfig()
		if err := LoadEnv(config, filepath.Join(t.TempDir(), "missing.env")); err != nil {
			t.Fatalf("LoadEnv() error = %v", err)
		}
		if config.Bot.WebAppURL != "https://app.example.com" {
			t.Errorf("expected web app url from env, got %q", config.Bot.WebAppURL)
		}
	})
}
