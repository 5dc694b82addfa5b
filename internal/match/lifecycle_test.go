package match

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

type fakeQueryStore struct {
	searches  map[int64]*storage.SavedSearch
	confirmed map[int64]time.Time
}

func (f *fakeQueryStore) GetByID(_ context.Context, id int64) (*storage.SavedSearch, error) {
	saved, ok := f.searches[id]
	if !ok {
		return nil, storage.ErrQueryNotFound
	}

	return saved, nil
}

func (f *fakeQueryStore) Confirm(_ context.Context, id int64, at time.Time) error {
	saved, ok := f.searches[id]
	if !ok {
		return storage.ErrQueryNotFound
	}

	saved.Confirmed = true
	saved.Disabled = true
	saved.ConfirmedAt = &at
	f.confirmed[id] = at

	return nil
}

type fakeResultStore struct {
	results    map[string]*storage.StoredResult
	markedRead []int64
}

func (f *fakeResultStore) GetByID(_ context.Context, id string) (*storage.StoredResult, error) {
	result, ok := f.results[id]
	if !ok {
		return nil, storage.ErrResultNotFound
	}

	return result, nil
}

func (f *fakeResultStore) SetStatus(_ context.Context, id string, status storage.ResultStatus, isRead bool) error {
	result, ok := f.results[id]
	if !ok {
		return storage.ErrResultNotFound
	}

	result.Status = status
	result.IsRead = isRead

	return nil
}

func (f *fakeResultStore) MarkRead(_ context.Context, queryID int64) (int64, error) {
	f.markedRead = append(f.markedRead, queryID)

	var count int64

	for _, result := range f.results {
		if result.UserQueryID == queryID && result.Status == storage.StatusPending && !result.IsRead {
			result.IsRead = true
			count++
		}
	}

	return count, nil
}

// failingExclusions errors on every write, exercising best-effort paths.
type failingExclusions struct {
	exclusion.Store
}

func (f *failingExclusions) Add(context.Context, *exclusion.Exclusion) (*exclusion.Exclusion, bool, error) {
	return nil, false, errors.New("store down")
}

func (f *failingExclusions) RemoveMatching(context.Context, string, string) (bool, error) {
	return false, errors.New("store down")
}

func newFixture() (*Service, *fakeQueryStore, *fakeResultStore, *exclusion.MemoryStore) {
	queries := &fakeQueryStore{
		searches: map[int64]*storage.SavedSearch{
			7: {ID: 7, LoginID: "u1", LastName: "Smith", SearchKey: "a1b2c3d4e5f60718"},
		},
		confirmed: make(map[int64]time.Time),
	}

	results := &fakeResultStore{
		results: map[string]*storage.StoredResult{
			"r1": {
				ID:          "r1",
				UserQueryID: 7,
				NameFull:    "James Smith",
				Fingerprint: "smith-j-cincinnati-oh-2024-01-15",
				URL:         "https://news.example.com/obits/james-smith",
				Status:      storage.StatusPending,
			},
			"r2": {
				ID:          "r2",
				UserQueryID: 7,
				NameFull:    "Jim Smith",
				Fingerprint: "smith-j-hamilton-oh-2024-01-16",
				URL:         "https://chapel.example.com/tribute/jim-smith",
				Status:      storage.StatusPending,
			},
		},
	}

	exclusions := exclusion.NewMemoryStore()
	service := NewService(queries, results, exclusions, slog.New(slog.DiscardHandler))

	return service, queries, results, exclusions
}

func TestConfirmFreezesSavedSearch(t *testing.T) {
	service, queries, results, _ := newFixture()
	ctx := context.Background()

	require.NoError(t, service.Confirm(ctx, "r1"))

	assert.Equal(t, storage.StatusConfirmed, results.results["r1"].Status)
	assert.True(t, results.results["r1"].IsRead)

	saved := queries.searches[7]
	assert.True(t, saved.Confirmed)
	assert.True(t, saved.Disabled, "confirmed search is disabled")
	assert.NotNil(t, saved.ConfirmedAt)

	// The second pending result is untouched.
	assert.Equal(t, storage.StatusPending, results.results["r2"].Status)
}

func TestRejectInsertsExclusion(t *testing.T) {
	service, _, results, exclusions := newFixture()
	ctx := context.Background()

	require.NoError(t, service.Reject(ctx, "r1", "wrong city"))

	assert.Equal(t, storage.StatusRejected, results.results["r1"].Status)
	assert.True(t, results.results["r1"].IsRead)

	perKey, err := exclusions.GetByKeySearch(ctx, "a1b2c3d4e5f60718")
	require.NoError(t, err)
	require.Len(t, perKey, 1)
	assert.Equal(t, "smith-j-cincinnati-oh-2024-01-15", perKey[0].FingerprintExcluded)
	assert.Equal(t, "news.example.com/obits/james-smith", perKey[0].URLExcluded)
	assert.Equal(t, "wrong city", perKey[0].Reason)
}

func TestRejectDefaultsReason(t *testing.T) {
	service, _, _, exclusions := newFixture()
	ctx := context.Background()

	require.NoError(t, service.Reject(ctx, "r1", ""))

	perKey, err := exclusions.GetByKeySearch(ctx, "a1b2c3d4e5f60718")
	require.NoError(t, err)
	require.Len(t, perKey, 1)
	assert.Equal(t, exclusion.DefaultReason, perKey[0].Reason)
}

func TestRejectCommitsEvenWhenExclusionFails(t *testing.T) {
	service, _, results, _ := newFixture()
	service.exclusions = &failingExclusions{}
	ctx := context.Background()

	require.NoError(t, service.Reject(ctx, "r1", "wrong person"))
	assert.Equal(t, storage.StatusRejected, results.results["r1"].Status)
}

func TestRestoreRemovesExclusion(t *testing.T) {
	service, _, results, exclusions := newFixture()
	ctx := context.Background()

	require.NoError(t, service.Reject(ctx, "r1", ""))
	require.NoError(t, service.Restore(ctx, "r1"))

	assert.Equal(t, storage.StatusPending, results.results["r1"].Status)

	fingerprints, err := exclusions.FingerprintsExcluded(ctx, "a1b2c3d4e5f60718")
	require.NoError(t, err)
	assert.Empty(t, fingerprints)
}

func TestMarkRead(t *testing.T) {
	service, _, results, _ := newFixture()
	ctx := context.Background()

	count, err := service.MarkRead(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, results.results["r1"].IsRead)
	assert.True(t, results.results["r2"].IsRead)
}

func TestLifecycleUnknownResult(t *testing.T) {
	service, _, _, _ := newFixture()
	ctx := context.Background()

	assert.ErrorIs(t, service.Confirm(ctx, "missing"), storage.ErrResultNotFound)
	assert.ErrorIs(t, service.Reject(ctx, "missing", ""), storage.ErrResultNotFound)
	assert.ErrorIs(t, service.Restore(ctx, "missing"), storage.ErrResultNotFound)
}
