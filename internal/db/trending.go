package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const trendingBatchSize = 100

// TrendingRepository handles the mirrored trending list.
type TrendingRepository struct {
	db *gorm.DB
}

// List returns the mirrored movies in response order.
func (r *TrendingRepository) List(ctx context.Context) ([]TrendingMovie, error) {
	var movies []TrendingMovie
	if err := r.db.WithContext(ctx).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "rank"}}).
		Find(&movies).Error; err != nil {
		return nil, fmt.Errorf("querying trending movies: %w", err)
	}
	return movies, nil
}

// Count returns the number of mirrored movies.
func (r *TrendingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&TrendingMovie{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting trending movies: %w", err)
	}
	return n, nil
}

// Replace swaps the whole mirror for movies in one transaction. Ranks are
// assigned from slice order. Readers see either the old or the new set, and
// concurrent replaces run one after another.
func (r *TrendingRepository) Replace(ctx context.Context, movies []TrendingMovie) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTrending(tx); err != nil {
			return err
		}

		if err := tx.Where("1 = 1").Delete(&TrendingMovie{}).Error; err != nil {
			return fmt.Errorf("clearing trending movies: %w", err)
		}

		if len(movies) == 0 {
			return nil
		}

		rows := make([]TrendingMovie, len(movies))
		for i, m := range movies {
			m.ID = 0
			m.Rank = i + 1
			rows[i] = m
		}

		if err := tx.CreateInBatches(rows, trendingBatchSize).Error; err != nil {
			return fmt.Errorf("inserting trending movies: %w", err)
		}
		return nil
	})
}

// lockTrending serializes writers on the trending table until the
// transaction ends. Under READ COMMITTED a second DELETE would otherwise
// skip rows inserted by a concurrent replace. Plain reads are not blocked.
// SQLite needs no lock since it runs on a single connection.
func lockTrending(tx *gorm.DB) error {
	if tx.Dialector.Name() != DriverPostgres {
		return nil
	}
	err := tx.Exec("LOCK TABLE ? IN EXCLUSIVE MODE", clause.Table{Name: TrendingMovie{}.TableName()}).Error
	if err != nil {
		return fmt.Errorf("locking trending movies: %w", err)
	}
	return nil
}
