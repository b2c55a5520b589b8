package shared

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultColor is the cover color given to playlists created without one.
const DefaultColor = "#667eea"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// IsHexColor reports whether s is a #rrggbb color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Library     LibraryConfig     `toml:"library"`
}

// StorageConfig selects the blob backend the library is persisted to.
type StorageConfig struct {
	Driver     string            `toml:"driver"`
	Key        string            `toml:"key"`
	QuotaBytes int               `toml:"quota_bytes"`
	File       FileStorageConfig `toml:"file"`
}

// FileStorageConfig contains settings for the file backend.
type FileStorageConfig struct {
	Dir string `toml:"dir"`
}

// DatabaseConfig contains SQLite connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	DSN string `toml:"dsn"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify client credentials used for the token exchange.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	TokenURL     string `toml:"token_url"`
	// ProxyURL points at a running musicflow server whose /token endpoint is used when no credentials are set.
	ProxyURL string `toml:"proxy_url"`
}

// HasCredentials reports whether both halves of the client credentials are set.
func (s SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// CatalogConfig controls catalog searches and the recommendation feed.
type CatalogConfig struct {
	Market         string   `toml:"market"`
	Limit          int      `toml:"limit"`
	RateLimit      float64  `toml:"rate_limit"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Genres         []string `toml:"genres"`
}

// Timeout returns the catalog HTTP timeout.
func (c CatalogConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LibraryConfig contains presentation defaults for the library.
type LibraryConfig struct {
	Locale       string `toml:"locale"`
	DefaultColor string `toml:"default_color"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
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

// LoadEnvFile loads variables from a dotenv file into the process environment.
//
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values with MUSICFLOW_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	strs := map[string]*string{
		"MUSICFLOW_SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"MUSICFLOW_SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"MUSICFLOW_STORAGE_DRIVER":        &c.Storage.Driver,
		"MUSICFLOW_REDIS_ADDR":            &c.Redis.Addr,
		"MUSICFLOW_POSTGRES_DSN":          &c.Postgres.DSN,
		"MUSICFLOW_TOKEN_PROXY":           &c.Credentials.Spotify.ProxyURL,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("MUSICFLOW_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: MUSICFLOW_SERVER_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return nil
}

// Validate checks the config for values no component can work with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "file", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("%w: storage key is empty", ErrInvalidConfig)
	}

	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("%w: negative storage quota", ErrInvalidConfig)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	if c.Library.DefaultColor != "" && !IsHexColor(c.Library.DefaultColor) {
		return fmt.Errorf("%w: default color %q is not #rrggbb", ErrInvalidConfig, c.Library.DefaultColor)
	}

	return nil
}
