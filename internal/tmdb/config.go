// Package tmdb provides a client for The Movie Database trending endpoint.
package tmdb

import (
	"errors"
	"time"
)

// Defaults used when Config leaves a field empty.
const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "en-US"
	DefaultTimeout  = 10 * time.Second
)

// ErrMissingCredentials is returned when neither an API key nor an access token is set.
var ErrMissingCredentials = errors.New("missing TMDB api key or access token")

// Config holds TMDB API configuration.
type Config struct {
	// APIKey is a v3 key sent as the api_key query parameter.
	APIKey string
	// AccessToken is a v4 read access token sent as a bearer token.
	// It takes precedence over APIKey.
	AccessToken string
	Language    string
	BaseURL     string
	Timeout     time.Duration
}

// Validate reports whether the configuration can authenticate.
func (c Config) Validate() error {
	if c.APIKey == "" && c.AccessToken == "" {
		return ErrMissingCredentials
	}
	return nil
}
