//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/config"
	"github.com/brandlens/brandlens/internal/core"
)

func TestLibsqlMemoryStore(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, "libsql", s.Driver())
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.UpdateRateLimit(ctx, "rdap.verisign.com", &core.RateLimitState{RequestCount: 2, WindowStart: s.now()}))
	state, err := s.GetRateLimit(ctx, "rdap.verisign.com")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 2, state.RequestCount)
}

func TestLibsqlFileStoreUsesWAL(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: "file:" + filepath.Join(t.TempDir(), "brandlens.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, 1, s.DB.Stats().MaxOpenConnections)

	var journalMode string
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode))
	assert.Contains(t, journalMode, "wal")

	var busyTimeout int
	require.NoError(t, s.DB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busyTimeout))
	assert.GreaterOrEqual(t, busyTimeout, 1000)
}
