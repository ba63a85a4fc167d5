package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	trendingPath = "/trending/movie/day"
	userAgent    = "movie-watchlist/1.0"
	maxBodyBytes = 4 << 20
)

// TMDB API error codes.
const errCodeInvalidAPIKey = 7

// Sentinel errors.
var (
	// ErrInvalidAPIKey is returned when TMDB rejects the credentials.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMalformedPayload is returned when the body is not the expected JSON shape.
	ErrMalformedPayload = errors.New("malformed payload")
)

// Client is a TMDB API client. Every call makes exactly one request; there
// is no caching or retry.
type Client struct {
	apiKey     string
	language   string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new TMDB client from the provided configuration.
// When an access token is configured, requests carry it as a bearer token.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	apiKey := cfg.APIKey
	if cfg.AccessToken != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.AccessToken,
			TokenType:   "Bearer",
		})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = timeout
		apiKey = ""
	}

	c := &Client{
		apiKey:     apiKey,
		language:   cfg.Language,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
	if c.language == "" {
		c.language = DefaultLanguage
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

// Trending fetches today's trending movies in the order TMDB returns them.
func (c *Client) Trending(ctx context.Context) ([]Movie, error) {
	params := url.Values{"language": {c.language}}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	body, err := c.doRequest(ctx, trendingPath, params)
	if err != nil {
		return nil, fmt.Errorf("fetching trending movies: %w", err)
	}

	movies, err := parseTrending(body)
	if err != nil {
		return nil, fmt.Errorf("parsing trending movies: %w", err)
	}
	return movies, nil
}

// doRequest performs a single HTTP GET and returns the body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)

		if resp.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == errCodeInvalidAPIKey {
			return nil, ErrInvalidAPIKey
		}
		if apiErr.StatusMessage != "" {
			return nil, fmt.Errorf("%w: %d: %s", ErrUnexpectedStatus, resp.StatusCode, apiErr.StatusMessage)
		}
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	return body, nil
}

// parseTrending decodes a trending response, requiring title, release_date
// and id on every result.
func parseTrending(body []byte) ([]Movie, error) {
	var resp trendingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrMalformedPayload)
	}

	movies := make([]Movie, 0, len(*resp.Results))
	for i, raw := range *resp.Results {
		if raw.ID == nil || raw.Title == nil || raw.ReleaseDate == nil {
			return nil, fmt.Errorf("%w: result %d lacks id, title or release_date", ErrMalformedPayload, i)
		}

		m := Movie{
			ID:          *raw.ID,
			Title:       *raw.Title,
			ReleaseDate: *raw.ReleaseDate,
		}
		if raw.PosterPath != nil {
			m.PosterPath = *raw.PosterPath
		}
		movies = append(movies, m)
	}
	return movies, nil
}
