package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables read by [LoadEnv]. Secrets never live in config.toml.
const (
	EnvBotToken  = "TUNEBOX_BOT_TOKEN"
	EnvServerURL = "TUNEBOX_SERVER_URL"
	EnvWebAppURL = "TUNEBOX_WEB_APP_URL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Storage  StorageConfig  `toml:"storage"`
	Server   ServerConfig   `toml:"server"`
	Covers   CoversConfig   `toml:"covers"`
	Bot      BotConfig      `toml:"bot"`
	Database DatabaseConfig `toml:"database"`
}

// LogConfig controls the process-wide logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// StorageConfig describes where user collections live on disk.
type StorageConfig struct {
	DataDir         string `toml:"data_dir"`
	DefaultPlaylist string `toml:"default_playlist"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	StaticDir      string   `toml:"static_dir"`
	MaxUploadMB    int      `toml:"max_upload_mb"`
	VerifyInitData bool     `toml:"verify_init_data"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// CoversConfig contains cover-art lookup settings.
type CoversConfig struct {
	SearchURL      string  `toml:"search_url"`
	Placeholder    string  `toml:"placeholder"`
	Workers        int     `toml:"workers"`
	RateLimit      float64 `toml:"rate_limit"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// BotConfig contains chat bot settings. Token is populated from the environment.
type BotConfig struct {
	Token              string `toml:"-"`
	ServerURL          string `toml:"server_url"`
	WebAppURL          string `toml:"web_app_url"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`
	SessionStore       string `toml:"session_store"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the multipart body cap in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 50 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

// Timeout returns the per-request timeout for cover search and download.
func (c CoversConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the per-request timeout for chat API and server API calls.
func (b BotConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// LoadConfigOrDefault loads path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads a .env file (when present) and applies environment overrides to config.
func LoadEnv(config *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, f, err)
		}
	}

	if v := os.Getenv(EnvBotToken); v != "" {
		config.Bot.Token = v
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		config.Bot.ServerURL = v
	}
	if v := os.Getenv(EnvWebAppURL); v != "" {
		config.Bot.WebAppURL = v
	}
	return nil
}
