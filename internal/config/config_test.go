package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, StoreDatabase, cfg.Session.Store)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.TMDB.Timeout)
	assert.Empty(t, cfg.Session.Secret)
}

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		content := `
[database]
driver = "postgres"
dsn = "postgres://localhost/watchlist"

[tmdb]
language = "zh"
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, DriverPostgres, cfg.Database.Driver)
		assert.Equal(t, "postgres://localhost/watchlist", cfg.Database.DSN)
		assert.Equal(t, "zh", cfg.TMDB.Language)
		// untouched keys keep their defaults
		assert.Equal(t, 10, cfg.Database.MaxOpenConns)
		assert.Equal(t, "https://api.themoviedb.org/3", cfg.TMDB.BaseURL)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[tmdb]\nlanguage = \"zh\"\n"), 0o600))

		t.Setenv("WATCHLIST_TMDB_LANGUAGE", "fr-FR")
		t.Setenv("WATCHLIST_SESSION_SECRET", "0123456789abcdef")
		t.Setenv("WATCHLIST_SESSION_TTL", "2h")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "fr-FR", cfg.TMDB.Language)
		assert.Equal(t, "0123456789abcdef", cfg.Session.Secret)
		assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte("[server\naddr ="), 0o600))

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("malformed environment value", func(t *testing.T) {
		t.Setenv("WATCHLIST_SESSION_TTL", "forever")

		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestValidateServer(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Session.Secret = "0123456789abcdef"
		cfg.TMDB.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "access token instead of key", mutate: func(c *Config) {
			c.TMDB.APIKey = ""
			c.TMDB.AccessToken = "token"
		}},
		{name: "missing secret", mutate: func(c *Config) { c.Session.Secret = "" }, wantErr: ErrMissingSecret},
		{name: "short secret", mutate: func(c *Config) { c.Session.Secret = "short" }, wantErr: ErrInvalidConfig},
		{name: "missing tmdb credential", mutate: func(c *Config) { c.TMDB.APIKey = "" }, wantErr: ErrMissingTMDBKey},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: ErrInvalidConfig},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: ErrInvalidConfig},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "redis" }, wantErr: ErrInvalidConfig},
		{name: "zero login rate", mutate: func(c *Config) { c.Login.Rate = 0 }, wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.ValidateServer()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.NoError(t, WriteExample(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, exampleConf, data)

	assert.Error(t, WriteExample(path), "second write must not overwrite")
}
