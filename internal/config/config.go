// Package config loads the application configuration.
//
// Values are layered: the embedded example file provides defaults, an optional
// TOML file on disk overrides them, and WATCHLIST_* environment variables
// override both.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "WATCHLIST"

// MinSecretLength is the minimum accepted length of the session secret.
const MinSecretLength = 16

//go:embed config.example.toml
var exampleConf []byte

// Configuration errors.
var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrMissingSecret  = errors.New("session secret is required")
	ErrMissingTMDBKey = errors.New("a TMDB api_key or access_token is required")
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Session stores.
const (
	StoreDatabase = "database"
	StoreMemory   = "memory"
)

// Config is the application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server" envconfig:"SERVER"`
	Database DatabaseConfig `toml:"database" envconfig:"DATABASE"`
	Session  SessionConfig  `toml:"session" envconfig:"SESSION"`
	TMDB     TMDBConfig     `toml:"tmdb" envconfig:"TMDB"`
	Login    LoginConfig    `toml:"login" envconfig:"LOGIN"`
	Log      LogConfig      `toml:"log" envconfig:"LOG"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string        `toml:"addr" envconfig:"ADDR"`
	ReadTimeout     time.Duration `toml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `toml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `toml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig contains relational store settings.
type DatabaseConfig struct {
	Driver       string `toml:"driver" envconfig:"DRIVER"`
	DSN          string `toml:"dsn" envconfig:"DSN"`
	MaxOpenConns int    `toml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
}

// SessionConfig contains login session settings.
type SessionConfig struct {
	Secret       string        `toml:"secret" envconfig:"SECRET"`
	Store        string        `toml:"store" envconfig:"STORE"`
	TTL          time.Duration `toml:"ttl" envconfig:"TTL"`
	SecureCookie bool          `toml:"secure_cookie" envconfig:"SECURE_COOKIE"`
}

// TMDBConfig contains catalog API settings.
type TMDBConfig struct {
	APIKey       string        `toml:"api_key" envconfig:"API_KEY"`
	AccessToken  string        `toml:"access_token" envconfig:"ACCESS_TOKEN"`
	Language     string        `toml:"language" envconfig:"LANGUAGE"`
	BaseURL      string        `toml:"base_url" envconfig:"BASE_URL"`
	ImageBaseURL string        `toml:"image_base_url" envconfig:"IMAGE_BASE_URL"`
	Timeout      time.Duration `toml:"timeout" envconfig:"TIMEOUT"`
}

// LoginConfig contains login throttling settings.
type LoginConfig struct {
	Rate  float64 `toml:"rate" envconfig:"RATE"`
	Burst int     `toml:"burst" envconfig:"BURST"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" envconfig:"LEVEL"`
}

// Default returns the configuration described by the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Load builds a Config from defaults, the TOML file at path (skipped when it
// does not exist) and environment overrides. It does not validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}

	return cfg, nil
}

// WriteExample writes the example configuration to path. It refuses to
// overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("%w: database dsn is empty", ErrInvalidConfig)
	}
	return nil
}

// ValidateServer checks the additional settings needed to serve HTTP.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Session.Secret == "" {
		return ErrMissingSecret
	}
	if len(c.Session.Secret) < MinSecretLength {
		return fmt.Errorf("%w: session secret must be at least %d bytes", ErrInvalidConfig, MinSecretLength)
	}

	switch c.Session.Store {
	case StoreDatabase, StoreMemory:
	default:
		return fmt.Errorf("%w: unknown session store %q", ErrInvalidConfig, c.Session.Store)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	}

	if c.TMDB.APIKey == "" && c.TMDB.AccessToken == "" {
		return ErrMissingTMDBKey
	}
	if c.Login.Rate <= 0 || c.Login.Burst <= 0 {
		return fmt.Errorf("%w: login rate and burst must be positive", ErrInvalidConfig)
	}

	return nil
}
