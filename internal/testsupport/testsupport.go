// Package testsupport builds throwaway backing services for tests.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kumbhanChoksi/Signals-Backend/internal/repository"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/database"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// NewSQLite opens a migrated sqlite database in a temp dir.
func NewSQLite(t testing.TB) *database.Client {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "signals.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := database.NewClient(database.WithDriver(database.DriverSQLite), database.WithDSN(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

// NewRedis starts miniredis and returns a client connected to it.
func NewRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}
