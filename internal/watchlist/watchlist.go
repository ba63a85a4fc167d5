// Package watchlist manages the user's watch entries.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/justestif/go-movie-watchlist/internal/db"
)

// MaxTitleLength is the longest accepted title, in runes.
const MaxTitleLength = 100

var (
	// ErrInvalidTitle is the parent of every title validation error.
	ErrInvalidTitle = errors.New("invalid title")

	// ErrEmptyTitle is returned for empty or whitespace-only titles.
	ErrEmptyTitle = fmt.Errorf("%w: title is empty", ErrInvalidTitle)

	// ErrTitleTooLong is returned for titles over MaxTitleLength runes.
	ErrTitleTooLong = fmt.Errorf("%w: title longer than %d characters", ErrInvalidTitle, MaxTitleLength)

	// ErrNotFound is returned when the entry does not exist.
	ErrNotFound = fmt.Errorf("watch entry %w", db.ErrNotFound)
)

// Service manages watch entries.
type Service struct {
	db *db.DB
}

// New creates a watch list service backed by database.
func New(database *db.DB) *Service {
	return &Service{db: database}
}

// NormalizeTitle trims title and checks it against the validation rules.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// Create validates title and inserts a new entry.
func (s *Service) Create(ctx context.Context, title string) (*db.WatchEntry, error) {
	title, err := NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	entry := &db.WatchEntry{Title: title}
	if err := s.db.Watches().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("creating watch entry: %w", err)
	}
	return entry, nil
}

// Get returns the entry with the given ID.
func (s *Service) Get(ctx context.Context, id uint) (*db.WatchEntry, error) {
	entry, err := s.db.Watches().Get(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting watch entry: %w", err)
	}
	return entry, nil
}

// Update overwrites the title of an existing entry. A missing entry is
// reported before the title is validated.
func (s *Service) Update(ctx context.Context, id uint, title string) (*db.WatchEntry, error) {
	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	title, err = NormalizeTitle(title)
	if err != nil {
		return nil, err
	}

	err = s.db.Watches().UpdateTitle(ctx, id, title)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating watch entry: %w", err)
	}

	entry.Title = title
	return entry, nil
}

// Delete removes an entry. Deleting a missing entry returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.Watches().Delete(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting watch entry: %w", err)
	}
	return nil
}

// List returns every entry in insertion order.
func (s *Service) List(ctx context.Context) ([]db.WatchEntry, error) {
	entries, err := s.db.Watches().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing watch entries: %w", err)
	}
	return entries, nil
}
