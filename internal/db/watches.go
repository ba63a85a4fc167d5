package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// WatchRepository handles watch entry database operations.
type WatchRepository struct {
	db *gorm.DB
}

// Create inserts a new entry and fills in its ID and timestamps.
func (r *WatchRepository) Create(ctx context.Context, entry *WatchEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("inserting watch entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (r *WatchRepository) Get(ctx context.Context, id uint) (*WatchEntry, error) {
	var entry WatchEntry
	err := r.db.WithContext(ctx).First(&entry, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying watch entry: %w", err)
	}
	return &entry, nil
}

// List returns all entries in insertion order.
func (r *WatchRepository) List(ctx context.Context) ([]WatchEntry, error) {
	var entries []WatchEntry
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("querying watch entries: %w", err)
	}
	return entries, nil
}

// UpdateTitle overwrites the title of an entry.
func (r *WatchRepository) UpdateTitle(ctx context.Context, id uint, title string) error {
	result := r.db.WithContext(ctx).Model(&WatchEntry{}).Where("id = ?", id).Update("title", title)
	if result.Error != nil {
		return fmt.Errorf("updating watch entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an entry by ID.
func (r *WatchRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&WatchEntry{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting watch entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
