package db

import (
	"context"
	"fmt"
)

// Migrate creates or updates every table. When drop is set, existing tables
// are dropped first, discarding all data.
func (db *DB) Migrate(ctx context.Context, drop bool) error {
	migrator := db.gorm.WithContext(ctx).Migrator()

	if drop {
		if err := migrator.DropTable(allModels()...); err != nil {
			return fmt.Errorf("dropping tables: %w", err)
		}
	}

	if err := db.gorm.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		return fmt.Errorf("migrating tables: %w", err)
	}
	return nil
}
