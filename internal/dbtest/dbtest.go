// Package dbtest opens isolated stores for tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/justestif/go-movie-watchlist/internal/db"
)

// Open returns a migrated in-memory SQLite store that is closed when the
// test finishes. Every call gets its own database.
func Open(t testing.TB) *db.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	database, err := db.New(context.Background(), db.Options{
		Driver: db.DriverSQLite,
		DSN:    dsn,
	})
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { _ = database.Close() })

	require.NoError(t, database.Migrate(context.Background(), false), "migrating test database")
	return database
}
