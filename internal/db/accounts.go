package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository handles account database operations.
type AccountRepository struct {
	db *gorm.DB
}

// Get retrieves the provisioned account. Returns ErrNotFound when none exists.
func (r *AccountRepository) Get(ctx context.Context) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("slot = ?", AccountSlot).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &account, nil
}

// GetByID retrieves the account with the given ID.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return &account, nil
}

// Upsert creates the account if none exists, otherwise overwrites the
// username and password hash of the existing one.
func (r *AccountRepository) Upsert(ctx context.Context, username, passwordHash string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("slot = ?", AccountSlot).First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			account = Account{
				ID:           uuid.New(),
				Slot:         AccountSlot,
				Username:     username,
				PasswordHash: passwordHash,
			}
			if err := tx.Create(&account).Error; err != nil {
				return fmt.Errorf("inserting account: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("querying account: %w", err)
		}

		err = tx.Model(&account).Updates(map[string]any{
			"username":      username,
			"password_hash": passwordHash,
		}).Error
		if err != nil {
			return fmt.Errorf("updating account: %w", err)
		}
		account.Username = username
		account.PasswordHash = passwordHash
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}
