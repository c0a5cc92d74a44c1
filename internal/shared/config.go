package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Chat        ChatConfig        `toml:"chat"`
	HTTP        HTTPConfig        `toml:"http"`
	Suggestions SuggestionsConfig `toml:"suggestions"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	LastFM  LastFMConfig  `toml:"lastfm"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// LastFMConfig contains the Last.fm metadata API key and endpoint.
type LastFMConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// OpenAIConfig contains credentials for the chat completion API.
//
// BaseURL may point at any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	PublicDir       string   `toml:"public_dir"`
	DashboardURL    string   `toml:"dashboard_url"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	SessionTTLHours int      `toml:"session_ttl_hours"`
	SecureCookies   bool     `toml:"secure_cookies"`
}

// ChatConfig controls the chat completion requests.
type ChatConfig struct {
	Model           string  `toml:"model"`
	MaxTokens       int     `toml:"max_tokens"`
	Temperature     float64 `toml:"temperature"`
	PlaylistContext int     `toml:"playlist_context"`
}

// HTTPConfig controls outbound calls to upstream services.
type HTTPConfig struct {
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RetryCount        int     `toml:"retry_count"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SuggestionsConfig bounds the random suggestion loop.
type SuggestionsConfig struct {
	AttemptsPerSong int `toml:"attempts_per_song"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SessionTTL returns the lifetime of a login session.
func (s ServerConfig) SessionTTL() time.Duration {
	if s.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(s.SessionTTLHours) * time.Hour
}

// Timeout returns the per-call timeout for outbound requests.
func (h HTTPConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file fall back to the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the given .env files into the process environment.
//
// Missing files are ignored; variables already set are not overwritten.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, p, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and deployment settings from the environment.
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	setString("LAST_FM_API_KEY", &c.Credentials.LastFM.APIKey)
	setString("OPENAI_API_KEY", &c.Credentials.OpenAI.APIKey)
	setString("OPENAI_BASE_URL", &c.Credentials.OpenAI.BaseURL)
	setString("SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID)
	setString("SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret)
	setString("SPOTIFY_CALLBACK_URL", &c.Credentials.Spotify.RedirectURI)
	setString("BEATBUDDY_DB_PATH", &c.Database.Path)

	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}

// ValidateChat reports whether the credentials needed to run chat turns are present.
func (c *Config) ValidateChat() error {
	var missing []string
	if c.Credentials.LastFM.APIKey == "" {
		missing = append(missing, "credentials.lastfm.api_key")
	}
	if c.Credentials.OpenAI.APIKey == "" {
		missing = append(missing, "credentials.openai.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// ValidateSpotify reports whether the Spotify OAuth credentials are present.
func (c *Config) ValidateSpotify() error {
	s := c.Credentials.Spotify
	if s.ClientID == "" || s.ClientSecret == "" || s.RedirectURI == "" {
		return fmt.Errorf("%w: spotify client_id, client_secret and redirect_uri are required", ErrMissingCredentials)
	}
	return nil
}
