package storage

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/config"
)

// setupStores starts a Postgres container, runs migrations, and wires every
// store under test against it.
func setupStores(ctx context.Context, t *testing.T) (*Connection, *QueryStore, *ResultStore, *BatchStore) {
	t.Helper()

	testDB := config.SetupTestDatabase(ctx, t)
	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	conn := NewConnectionFromDB(testDB.Connection)
	logger := slog.New(slog.DiscardHandler)

	queries, err := NewQueryStore(conn, logger)
	require.NoError(t, err)

	results, err := NewResultStore(conn, logger)
	require.NoError(t, err)

	batches, err := NewBatchStore(conn, logger)
	require.NoError(t, err)

	return conn, queries, results, batches
}

func newSavedSearch(lastName, searchKey string) *SavedSearch {
	return &SavedSearch{
		LoginID:   "user-1",
		FirstName: "James",
		NickName:  "Jim",
		LastName:  lastName,
		City:      "Hamilton",
		State:     "OH",
		Age:       71,
		SearchKey: searchKey,
	}
}

func TestQueryStoreLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, queries, _, _ := setupStores(ctx, t)

	saved := newSavedSearch("Smith", "a1b2c3d4e5f60718")
	require.NoError(t, queries.Create(ctx, saved))
	require.NotZero(t, saved.ID)

	t.Run("fetch by id and search key", func(t *testing.T) {
		fetched, err := queries.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "Smith", fetched.LastName)
		assert.Equal(t, 71, fetched.Age)

		byKey, err := queries.GetBySearchKey(ctx, "a1b2c3d4e5f60718")
		require.NoError(t, err)
		assert.Equal(t, saved.ID, byKey.ID)
	})

	t.Run("missing rows map to sentinel errors", func(t *testing.T) {
		_, err := queries.GetByID(ctx, 99999)
		assert.ErrorIs(t, err, ErrQueryNotFound)

		_, err = queries.GetBySearchKey(ctx, "ffffffffffffffff")
		assert.ErrorIs(t, err, ErrQueryNotFound)
	})

	t.Run("active listing excludes disabled and confirmed", func(t *testing.T) {
		other := newSavedSearch("Jones", "b2c3d4e5f6071829")
		require.NoError(t, queries.Create(ctx, other))
		require.NoError(t, queries.Disable(ctx, other.ID))

		active, err := queries.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, saved.ID, active[0].ID)
	})

	t.Run("search key refresh", func(t *testing.T) {
		require.NoError(t, queries.UpdateSearchKey(ctx, saved.ID, "c3d4e5f607182930"))

		fetched, err := queries.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, "c3d4e5f607182930", fetched.SearchKey)
	})

	t.Run("confirm freezes the search", func(t *testing.T) {
		confirmedAt := time.Now().UTC()
		require.NoError(t, queries.Confirm(ctx, saved.ID, confirmedAt))

		fetched, err := queries.GetByID(ctx, saved.ID)
		require.NoError(t, err)
		assert.True(t, fetched.Confirmed)
		assert.True(t, fetched.Disabled)
		require.NotNil(t, fetched.ConfirmedAt)

		fetched.LastName = "Edited"
		assert.ErrorIs(t, queries.Update(ctx, fetched), ErrQueryConfirmed)

		active, err := queries.ListActive(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)
	})
}

func TestResultStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, queries, results, batches := setupStores(ctx, t)

	saved := newSavedSearch("Smith", "a1b2c3d4e5f60718")
	require.NoError(t, queries.Create(ctx, saved))

	batch, err := batches.Create(ctx, "captures/2024-01-16.json")
	require.NoError(t, err)

	candidate := newTestCandidate()
	stored := ResultFromCandidate(saved.ID, candidate, batch.CreatedAt)
	require.NoError(t, results.Insert(ctx, stored))

	t.Run("round trip preserves fields", func(t *testing.T) {
		fetched, err := results.GetByID(ctx, stored.ID)
		require.NoError(t, err)

		assert.Equal(t, "James Smith", fetched.NameFull)
		assert.Equal(t, "2024-01-15", fetched.DOD)
		assert.Equal(t, "smith-j-hamilton-oh-2024-01-15", fetched.Fingerprint)
		assert.Equal(t, StatusPending, fetched.Status)
		assert.False(t, fetched.IsRead)
		require.NotNil(t, fetched.ScoresCriteria.NameLast)
		assert.Equal(t, 90, *fetched.ScoresCriteria.NameLast)
		assert.True(t, fetched.RanDt.Equal(batch.CreatedAt))
	})

	t.Run("fingerprint pre-read", func(t *testing.T) {
		fingerprints, err := results.FingerprintsForQuery(ctx, saved.ID)
		require.NoError(t, err)
		assert.Contains(t, fingerprints, "smith-j-hamilton-oh-2024-01-15")
	})

	t.Run("insert for missing search fails", func(t *testing.T) {
		orphan := ResultFromCandidate(99999, newTestCandidate(), batch.CreatedAt)
		orphan.ID = "cand-orphan"

		assert.ErrorIs(t, results.Insert(ctx, orphan), ErrQueryNotFound)
	})

	t.Run("mark read and status transitions", func(t *testing.T) {
		updated, err := results.MarkRead(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		// Second pass has nothing left to flip.
		updated, err = results.MarkRead(ctx, saved.ID)
		require.NoError(t, err)
		assert.Zero(t, updated)

		require.NoError(t, results.SetStatus(ctx, stored.ID, StatusRejected, true))

		fetched, err := results.GetByID(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, fetched.Status)

		assert.ErrorIs(t, results.SetStatus(ctx, "missing", StatusPending, false), ErrResultNotFound)
	})
}

func TestResultStoreImageHygieneAndSummaries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, queries, results, batches := setupStores(ctx, t)

	saved := newSavedSearch("Smith", "a1b2c3d4e5f60718")
	require.NoError(t, queries.Create(ctx, saved))

	oldBatch, err := batches.Create(ctx, "")
	require.NoError(t, err)

	oldResult := ResultFromCandidate(saved.ID, newTestCandidate(), oldBatch.CreatedAt)
	oldResult.ID = "cand-old"
	oldResult.ImageURL = "https://img.example.com/old.jpg"
	require.NoError(t, results.Insert(ctx, oldResult))

	newBatch, err := batches.Create(ctx, "")
	require.NoError(t, err)

	newCandidate := newTestCandidate()
	newCandidate.Fingerprint = "smith-j-hamilton-oh-2024-02-20"

	newResult := ResultFromCandidate(saved.ID, newCandidate, newBatch.CreatedAt.Add(time.Second))
	newResult.ID = "cand-new"
	newResult.ImageURL = "https://img.example.com/new.jpg"
	require.NoError(t, results.Insert(ctx, newResult))

	cleared, err := results.NullStaleImageURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	fetched, err := results.GetByID(ctx, "cand-old")
	require.NoError(t, err)
	assert.Empty(t, fetched.ImageURL)

	fetched, err = results.GetByID(ctx, "cand-new")
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/new.jpg", fetched.ImageURL)

	summaries, err := results.UnreadPendingSummaries(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "user-1", summaries[0].LoginID)
	assert.Equal(t, 2, summaries[0].Total)
	assert.Equal(t, map[int64]int{saved.ID: 2}, summaries[0].PerQuery)
}

func TestBatchStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	_, _, _, batches := setupStores(ctx, t)

	first, err := batches.Create(ctx, "captures/day1.json")
	require.NoError(t, err)

	second, err := batches.Create(ctx, "")
	require.NoError(t, err)

	require.NoError(t, batches.Finish(ctx, second.ID, 12, 34))

	latest, err := batches.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 12, latest.TotalQueries)
	assert.Equal(t, 34, latest.TotalResults)
	assert.Empty(t, latest.InputFile)

	fetched, err := batches.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "captures/day1.json", fetched.InputFile)

	listed, err := batches.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID)

	assert.ErrorIs(t, batches.Finish(ctx, first.ID[:8]+"-0000-0000-0000-000000000000", 0, 0), ErrBatchNotFound)
}

func TestVariantAndCaptureStores(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	conn, _, _, batches := setupStores(ctx, t)

	t.Run("name variants", func(t *testing.T) {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO name_first_variant (name_first, variant)
			VALUES ('margaret', 'peggy'), ('margaret', 'meg')
		`)
		require.NoError(t, err)

		variants, err := NewVariantStore(conn)
		require.NoError(t, err)

		pairs, err := variants.Pairs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, [][2]string{
			{"margaret", "peggy"},
			{"margaret", "meg"},
		}, pairs)
	})

	t.Run("capture tables", func(t *testing.T) {
		batch, err := batches.Create(ctx, "captures/day1.json")
		require.NoError(t, err)

		var queryID int64

		row := conn.QueryRowContext(ctx, `
			INSERT INTO queries (batch_id, first_name, last_name, city, state, age)
			VALUES ($1, 'James', 'Smith', 'Hamilton', 'OH', 71)
			RETURNING id
		`, batch.ID)
		require.NoError(t, row.Scan(&queryID))

		_, err = conn.ExecContext(ctx, `
			INSERT INTO results (query_id, url, title)
			VALUES ($1, 'https://www.legacy.com/obituaries/james-smith', 'James Smith Obituary')
		`, queryID)
		require.NoError(t, err)

		captures, err := NewCaptureStore(conn)
		require.NoError(t, err)

		captured, err := captures.QueriesForBatch(ctx, batch.ID)
		require.NoError(t, err)
		require.Len(t, captured, 1)
		assert.Equal(t, "Smith", captured[0].LastName)
		assert.Equal(t, 71, captured[0].Age)

		capturedResults, err := captures.ResultsForQuery(ctx, queryID)
		require.NoError(t, err)
		require.Len(t, capturedResults, 1)
		assert.Equal(t, "https://www.legacy.com/obituaries/james-smith", capturedResults[0].URL)
	})
}

func TestPersistentKeyStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	conn, _, _, _ := setupStores(ctx, t)

	store, err := NewPersistentKeyStore(conn, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	plaintext, err := GenerateAPIKey()
	require.NoError(t, err)

	key := &Key{
		ID:        "key-1",
		Key:       plaintext,
		Name:      "reviewer-ui",
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}
	require.NoError(t, store.Add(key))

	t.Run("find by plaintext", func(t *testing.T) {
		found, ok := store.FindByKey(plaintext)
		require.True(t, ok)
		assert.Equal(t, "key-1", found.ID)
		assert.Equal(t, "reviewer-ui", found.Name)
		assert.Equal(t, plaintext, found.Key)
	})

	t.Run("wrong plaintext misses", func(t *testing.T) {
		other, err := GenerateAPIKey()
		require.NoError(t, err)

		_, ok := store.FindByKey(other)
		assert.False(t, ok)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		err := store.Add(&Key{ID: "key-1", Key: plaintext + "x", Name: "dup", CreatedAt: time.Now(), Active: true})
		assert.ErrorIs(t, err, ErrKeyAlreadyExists)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete("key-1"))

		_, ok := store.FindByKey(plaintext)
		assert.False(t, ok)

		assert.ErrorIs(t, store.Delete("key-1"), ErrKeyNotFound)
	})
}
