// Package db provides relational store access for the movie watchlist.
//
// Production deployments run on PostgreSQL through a pgx connection pool;
// local runs and tests use SQLite. Both are driven through GORM.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Common errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnknownDriver = errors.New("unknown database driver")
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const slowQueryThreshold = 200 * time.Millisecond

// Options configures how the store is opened.
type Options struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	Logger       *log.Logger
}

// DB wraps a GORM handle and, for PostgreSQL, the pgx pool behind it.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
	pool *pgxpool.Pool
}

// New opens the store described by opts and verifies the connection.
func New(ctx context.Context, opts Options) (*DB, error) {
	cfg := &gorm.Config{Logger: newGormLogger(opts.Logger)}

	switch opts.Driver {
	case DriverPostgres:
		return openPostgres(ctx, opts, cfg)
	case DriverSQLite:
		return openSQLite(ctx, opts, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

func openPostgres(ctx context.Context, opts Options, cfg *gorm.Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxOpenConns)
	}
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("opening gorm: %w", err)
	}

	return &DB{gorm: gdb, sql: sqlDB, pool: pool}, nil
}

func openSQLite(ctx context.Context, opts Options, cfg *gorm.Config) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(opts.DSN), cfg)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql handle: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps
	// shared in-memory databases alive for the lifetime of the handle.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{gorm: gdb, sql: sqlDB}, nil
}

// Close closes the database handle and the underlying pool, if any.
func (db *DB) Close() error {
	err := db.sql.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// Ping verifies the store is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// Gorm returns the underlying GORM handle for advanced operations.
func (db *DB) Gorm() *gorm.DB {
	return db.gorm
}

// Accounts returns an AccountRepository.
func (db *DB) Accounts() *AccountRepository {
	return &AccountRepository{db: db.gorm}
}

// Sessions returns a SessionRepository.
func (db *DB) Sessions() *SessionRepository {
	return &SessionRepository{db: db.gorm}
}

// Trending returns a TrendingRepository.
func (db *DB) Trending() *TrendingRepository {
	return &TrendingRepository{db: db.gorm}
}

// Watches returns a WatchRepository.
func (db *DB) Watches() *WatchRepository {
	return &WatchRepository{db: db.gorm}
}

// newGormLogger routes GORM warnings and slow queries to l.
func newGormLogger(l *log.Logger) gormlogger.Interface {
	if l == nil {
		return gormlogger.Discard
	}
	writer := l.With("component", "gorm").StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel})
	return gormlogger.New(writer, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
