package etsimport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-etsdecode/internal/commissioning/etstest"
	"github.com/nerrad567/gray-logic-etsdecode/internal/infrastructure/database"
)

func openTestCache(t *testing.T, path string) *CatalogCache {
	t.Helper()
	cache, err := OpenCatalogCache(t.Context(), database.Config{Path: path, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() }) //nolint:errcheck // Test cleanup
	return cache
}

func TestCatalogCache_MissThenHit(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultCacheFile)
	cache := openTestCache(t, path)

	cat, hit, err := cache.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, cat)

	built := buildMinimalCatalog(t, stageFixture(t, etstest.Minimal()))
	require.NoError(t, cache.Store(t.Context(), built))

	// A fresh handle sees the stored snapshot.
	reopened := openTestCache(t, path)
	got, hit, err := reopened.Load(t.Context())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, built, got)
}

func TestCatalogCache_StoreReplaces(t *testing.T) {
	cache := openTestCache(t, filepath.Join(t.TempDir(), DefaultCacheFile))

	require.NoError(t, cache.Store(t.Context(), newCatalog()))
	built := buildMinimalCatalog(t, stageFixture(t, etstest.Minimal()))
	require.NoError(t, cache.Store(t.Context(), built))

	got, hit, err := cache.Load(t.Context())
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, built.Stats(), got.Stats())

	var rows int
	require.NoError(t, cache.db.QueryRowContext(t.Context(), `SELECT COUNT(*) FROM catalog_snapshots`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestCatalogCache_OtherFormatVersionIsMiss(t *testing.T) {
	cache := openTestCache(t, filepath.Join(t.TempDir(), DefaultCacheFile))
	require.NoError(t, cache.Store(t.Context(), newCatalog()))

	_, err := cache.db.ExecContext(t.Context(), `UPDATE catalog_snapshots SET format_version = ?`, snapshotVersion+1)
	require.NoError(t, err)

	_, hit, err := cache.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCatalogCache_CorruptPayload(t *testing.T) {
	cache := openTestCache(t, filepath.Join(t.TempDir(), DefaultCacheFile))
	require.NoError(t, cache.Store(t.Context(), newCatalog()))

	_, err := cache.db.ExecContext(t.Context(), `UPDATE catalog_snapshots SET payload = X'FFFF'`)
	require.NoError(t, err)

	_, hit, err := cache.Load(t.Context())
	assert.Error(t, err)
	assert.False(t, hit)
}
