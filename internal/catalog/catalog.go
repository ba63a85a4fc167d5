// Package catalog mirrors the external trending list into the relational store.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/justestif/go-movie-watchlist/internal/db"
	"github.com/justestif/go-movie-watchlist/internal/tmdb"
)

// Fetcher abstracts the TMDB client for testing.
type Fetcher interface {
	Trending(ctx context.Context) ([]tmdb.Movie, error)
}

// Mirror keeps a local copy of the trending list.
type Mirror struct {
	db      *db.DB
	fetcher Fetcher
	now     func() time.Time
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithClock sets the clock used to stamp fetched rows.
func WithClock(now func() time.Time) Option {
	return func(m *Mirror) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMirror creates a Mirror that refreshes from fetcher into database.
func NewMirror(database *db.DB, fetcher Fetcher, opts ...Option) *Mirror {
	m := &Mirror{
		db:      database,
		fetcher: fetcher,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Refresh fetches the current trending list and replaces the mirror with it,
// keeping the response order. It returns the number of mirrored movies.
// When the fetch fails the mirror is left untouched.
func (m *Mirror) Refresh(ctx context.Context) (int, error) {
	fetched, err := m.fetcher.Trending(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching trending list: %w", err)
	}

	fetchedAt := m.now()
	rows := make([]db.TrendingMovie, len(fetched))
	for i, f := range fetched {
		rows[i] = db.TrendingMovie{
			Title:       f.Title,
			ReleaseDate: f.ReleaseDate,
			PosterPath:  f.PosterPath,
			TMDBID:      f.ID,
			FetchedAt:   fetchedAt,
		}
	}

	if err := m.db.Trending().Replace(ctx, rows); err != nil {
		return 0, fmt.Errorf("replacing trending mirror: %w", err)
	}
	return len(rows), nil
}

// List returns the mirrored movies in response order.
func (m *Mirror) List(ctx context.Context) ([]db.TrendingMovie, error) {
	movies, err := m.db.Trending().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing trending mirror: %w", err)
	}
	return movies, nil
}
