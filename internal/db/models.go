package db

import (
	"time"

	"github.com/google/uuid"
)

// AccountSlot is the only slot an account may occupy. The unique index on
// Slot keeps the accounts table at zero or one row.
const AccountSlot = 1

// Account is the single administrative login.
type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Slot         int       `gorm:"uniqueIndex;not null"`
	Username     string    `gorm:"size:64;not null"`
	PasswordHash string    `gorm:"size:128;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authenticated web session.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}

// TrendingMovie is one row of the mirrored trending list. Rows are replaced
// wholesale on every refresh and must not be referenced from other tables.
type TrendingMovie struct {
	ID          uint   `gorm:"primaryKey"`
	Rank        int    `gorm:"not null;index"`
	Title       string `gorm:"size:255;not null"`
	ReleaseDate string `gorm:"size:20"`
	PosterPath  string `gorm:"size:255"`
	TMDBID      int64  `gorm:"column:tmdb_id;not null"`
	FetchedAt   time.Time
}

// TableName pins the table name used by Replace's lock statement.
func (TrendingMovie) TableName() string {
	return "trending_movies"
}

// WatchEntry is a user-authored watchlist record.
type WatchEntry struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"size:100;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// allModels lists every table managed by Migrate.
func allModels() []any {
	return []any{&Account{}, &Session{}, &TrendingMovie{}, &WatchEntry{}}
}
