package exclusion

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

func setupPostgresStore(ctx context.Context, t *testing.T) *PostgresStore {
	t.Helper()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	conn := storage.NewConnectionFromDB(testDB.Connection)

	store, err := NewPostgresStore(conn, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	return store
}

const (
	testSearchKey   = "a1b2c3d4e5f60718"
	otherSearchKey  = "b2c3d4e5f6071829"
	testFingerprint = "smith-j-hamilton-oh-2024-01-15"
)

func TestPostgresStoreAddIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupPostgresStore(ctx, t)

	rule := &Exclusion{
		Scope:               ScopePerQuery,
		SearchKey:           testSearchKey,
		FingerprintExcluded: testFingerprint,
		NameExcluded:        "James Smith",
	}

	created, isNew, err := store.Add(ctx, rule)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.NotZero(t, created.ID)
	assert.Equal(t, DefaultReason, created.Reason)

	again, isNew, err := store.Add(ctx, &Exclusion{
		Scope:               ScopePerQuery,
		SearchKey:           testSearchKey,
		FingerprintExcluded: testFingerprint,
	})
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, created.ID, again.ID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestPostgresStoreNormalizesURLs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupPostgresStore(ctx, t)

	created, isNew, err := store.Add(ctx, &Exclusion{
		Scope:       ScopeGlobal,
		URLExcluded: "HTTPS://WWW.Legacy.com/obituaries/james-smith/",
	})
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Equal(t, "www.legacy.com/obituaries/james-smith", created.URLExcluded)

	// A differently-decorated spelling of the same URL hits the same rule.
	_, isNew, err = store.Add(ctx, &Exclusion{
		Scope:       ScopeGlobal,
		URLExcluded: "https://www.legacy.com/obituaries/james-smith",
	})
	require.NoError(t, err)
	assert.False(t, isNew)

	urls, err := store.URLsExcluded(ctx, testSearchKey)
	require.NoError(t, err)
	assert.Contains(t, urls, created.URLExcluded)
}

func TestPostgresStoreScopedReads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupPostgresStore(ctx, t)

	mustAdd := func(rule *Exclusion) {
		t.Helper()

		_, _, err := store.Add(ctx, rule)
		require.NoError(t, err)
	}

	mustAdd(&Exclusion{Scope: ScopePerQuery, SearchKey: testSearchKey, FingerprintExcluded: testFingerprint})
	mustAdd(&Exclusion{Scope: ScopePerQuery, SearchKey: otherSearchKey, FingerprintExcluded: "jones-m-dayton-oh-2024-02-01"})
	mustAdd(&Exclusion{Scope: ScopeGlobal, FingerprintExcluded: "doe-j-columbus-oh-2024-03-01"})
	mustAdd(&Exclusion{Scope: ScopeGlobal, URLExcluded: "https://example.com/spam"})

	t.Run("fingerprints merge global rules", func(t *testing.T) {
		fingerprints, err := store.FingerprintsExcluded(ctx, testSearchKey)
		require.NoError(t, err)

		assert.Contains(t, fingerprints, testFingerprint)
		assert.Contains(t, fingerprints, "doe-j-columbus-oh-2024-03-01")
		assert.NotContains(t, fingerprints, "jones-m-dayton-oh-2024-02-01")
	})

	t.Run("urls merge global rules", func(t *testing.T) {
		urls, err := store.URLsExcluded(ctx, testSearchKey)
		require.NoError(t, err)
		assert.Len(t, urls, 1)
	})

	t.Run("per-key listing", func(t *testing.T) {
		listed, err := store.GetByKeySearch(ctx, testSearchKey)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, testFingerprint, listed[0].FingerprintExcluded)
	})

	t.Run("global listing", func(t *testing.T) {
		listed, err := store.GetGlobalExclusions(ctx)
		require.NoError(t, err)
		assert.Len(t, listed, 2)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := store.Stats(ctx)
		require.NoError(t, err)

		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 2, stats.PerQuery)
		assert.Equal(t, 2, stats.Global)
		assert.Equal(t, 3, stats.Fingerprints)
		assert.Equal(t, 1, stats.URLs)
	})
}

func TestPostgresStoreRemove(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupPostgresStore(ctx, t)

	created, _, err := store.Add(ctx, &Exclusion{
		Scope:               ScopePerQuery,
		SearchKey:           testSearchKey,
		FingerprintExcluded: testFingerprint,
	})
	require.NoError(t, err)

	t.Run("remove by id", func(t *testing.T) {
		removed, err := store.Remove(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.Remove(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("remove matching restores a rejection", func(t *testing.T) {
		_, _, err := store.Add(ctx, &Exclusion{
			Scope:               ScopePerQuery,
			SearchKey:           testSearchKey,
			FingerprintExcluded: testFingerprint,
		})
		require.NoError(t, err)

		removed, err := store.RemoveMatching(ctx, testSearchKey, testFingerprint)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = store.RemoveMatching(ctx, testSearchKey, testFingerprint)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}
