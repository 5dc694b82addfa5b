package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/exclusion"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

type stubEngine struct {
	result *search.Result
	err    error
	query  *search.Query
}

func (e *stubEngine) Search(_ context.Context, query *search.Query, _ *search.Metrics) (*search.Result, error) {
	e.query = query

	return e.result, e.err
}

type stubBatches struct {
	batches map[string]*storage.Batch
	latest  *storage.Batch
}

func (b *stubBatches) GetByID(_ context.Context, id string) (*storage.Batch, error) {
	batch, ok := b.batches[id]
	if !ok {
		return nil, storage.ErrBatchNotFound
	}

	return batch, nil
}

func (b *stubBatches) Latest(context.Context) (*storage.Batch, error) {
	if b.latest == nil {
		return nil, storage.ErrBatchNotFound
	}

	return b.latest, nil
}

func (b *stubBatches) List(context.Context, int) ([]*storage.Batch, error) {
	var out []*storage.Batch
	for _, batch := range b.batches {
		out = append(out, batch)
	}

	return out, nil
}

type stubLifecycle struct {
	confirmed []string
	rejected  map[string]string
	restored  []string
	marked    []int64
	err       error
}

func (l *stubLifecycle) Confirm(_ context.Context, resultID string) error {
	if l.err != nil {
		return l.err
	}

	l.confirmed = append(l.confirmed, resultID)

	return nil
}

func (l *stubLifecycle) Reject(_ context.Context, resultID, reason string) error {
	if l.err != nil {
		return l.err
	}

	if l.rejected == nil {
		l.rejected = make(map[string]string)
	}

	l.rejected[resultID] = reason

	return nil
}

func (l *stubLifecycle) Restore(_ context.Context, resultID string) error {
	if l.err != nil {
		return l.err
	}

	l.restored = append(l.restored, resultID)

	return nil
}

func (l *stubLifecycle) MarkRead(_ context.Context, queryID int64) (int64, error) {
	if l.err != nil {
		return 0, l.err
	}

	l.marked = append(l.marked, queryID)

	return 2, nil
}

func newTestServer(deps Dependencies) http.Handler {
	server := &Server{
		logger: slog.New(slog.DiscardHandler),
		config: &ServerConfig{MaxRequestSize: defaultMaxRequestSize},
		deps:   deps,
	}

	mux := http.NewServeMux()
	server.setupRoutes(mux)

	return mux
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestHandleSearch(t *testing.T) {
	engine := &stubEngine{
		result: &search.Result{
			SearchKey: "a1b2c3d4e5f60718",
			Candidates: []search.Candidate{
				{ID: "c1", NameFull: "James Smith", URL: "https://news.example.com/obits/james-smith", Rank: 1},
			},
		},
	}

	handler := newTestServer(Dependencies{Engine: engine})

	rec := doRequest(t, handler, http.MethodGet,
		"/search?firstName=James&lastName=Smith&city=Hamilton&state=OH&age=77&keyWords=carpenter", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var body searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a1b2c3d4e5f60718", body.KeySearch)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "James Smith", body.Results[0].NameFull)

	require.NotNil(t, engine.query)
	assert.Equal(t, "James", engine.query.FirstName)
	assert.Equal(t, 77, engine.query.Age)
	assert.Equal(t, "carpenter", engine.query.KeyWords)
}

func TestHandleSearchEmptyResultsIsArray(t *testing.T) {
	engine := &stubEngine{result: &search.Result{SearchKey: "a1b2c3d4e5f60718"}}
	handler := newTestServer(Dependencies{Engine: engine})

	rec := doRequest(t, handler, http.MethodGet, "/search?firstName=James&lastName=Smith", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestHandleSearchValidationError(t *testing.T) {
	engine := &stubEngine{err: search.ErrLastNameRequired}
	handler := newTestServer(Dependencies{Engine: engine})

	rec := doRequest(t, handler, http.MethodGet, "/search?firstName=James", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, search.ErrLastNameRequired.Error(), body["error"])
}

func TestHandleSearchBadAge(t *testing.T) {
	handler := newTestServer(Dependencies{Engine: &stubEngine{}})

	rec := doRequest(t, handler, http.MethodGet, "/search?lastName=Smith&age=old", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExclusionLifecycleOverHTTP(t *testing.T) {
	store := exclusion.NewMemoryStore()
	handler := newTestServer(Dependencies{Exclusions: store})

	// Create
	rec := doRequest(t, handler, http.MethodPost, "/exclude",
		`{"searchKey":"a1b2c3d4e5f60718","fingerprint":"smith-j-cincinnati-oh-2024-01-15","reason":"wrong city"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created excludeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, created.IsNew)
	assert.Equal(t, exclusion.ScopePerQuery, created.Exclusion.Scope)

	// Re-create is idempotent, reported as not new
	rec = doRequest(t, handler, http.MethodPost, "/exclude",
		`{"searchKey":"a1b2c3d4e5f60718","fingerprint":"smith-j-cincinnati-oh-2024-01-15","reason":"wrong city"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var again excludeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.False(t, again.IsNew)
	assert.Equal(t, created.Exclusion.ID, again.Exclusion.ID)

	// List
	rec = doRequest(t, handler, http.MethodGet, "/exclusions?searchKey=a1b2c3d4e5f60718", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed exclusionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Exclusions, 1)

	// Delete
	id := strconv.FormatInt(created.Exclusion.ID, 10)

	rec = doRequest(t, handler, http.MethodDelete, "/exclude/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	// Second delete finds nothing
	rec = doRequest(t, handler, http.MethodDelete, "/exclude/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateExclusionValidation(t *testing.T) {
	handler := newTestServer(Dependencies{Exclusions: exclusion.NewMemoryStore()})

	// No fingerprint and no URL
	rec := doRequest(t, handler, http.MethodPost, "/exclude", `{"searchKey":"a1b2c3d4e5f60718"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed body
	rec = doRequest(t, handler, http.MethodPost, "/exclude", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListExclusionsRequiresSearchKey(t *testing.T) {
	handler := newTestServer(Dependencies{Exclusions: exclusion.NewMemoryStore()})

	rec := doRequest(t, handler, http.MethodGet, "/exclusions", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchEndpoints(t *testing.T) {
	latest := &storage.Batch{ID: "b2", CreatedAt: time.Now(), TotalQueries: 3, TotalResults: 5}
	batches := &stubBatches{
		batches: map[string]*storage.Batch{
			"b1": {ID: "b1"},
			"b2": latest,
		},
		latest: latest,
	}

	handler := newTestServer(Dependencies{Batches: batches})

	rec := doRequest(t, handler, http.MethodGet, "/batches", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed batchesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Batches, 2)

	rec = doRequest(t, handler, http.MethodGet, "/batches/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"b2"`)

	rec = doRequest(t, handler, http.MethodGet, "/batches/b1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/batches/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLifecycleEndpoints(t *testing.T) {
	lifecycle := &stubLifecycle{}
	handler := newTestServer(Dependencies{Lifecycle: lifecycle})

	rec := doRequest(t, handler, http.MethodPost, "/results/r1/confirm", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"r1"}, lifecycle.confirmed)

	rec = doRequest(t, handler, http.MethodPost, "/results/r2/reject", `{"reason":"wrong city"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wrong city", lifecycle.rejected["r2"])

	rec = doRequest(t, handler, http.MethodPost, "/results/r2/restore", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"r2"}, lifecycle.restored)

	rec = doRequest(t, handler, http.MethodPost, "/queries/7/mark-read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"updated":2`)
	assert.Equal(t, []int64{7}, lifecycle.marked)
}

func TestLifecycleUnknownResult(t *testing.T) {
	lifecycle := &stubLifecycle{err: storage.ErrResultNotFound}
	handler := newTestServer(Dependencies{Lifecycle: lifecycle})

	rec := doRequest(t, handler, http.MethodPost, "/results/missing/confirm", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownPathReturns404(t *testing.T) {
	handler := newTestServer(Dependencies{})

	rec := doRequest(t, handler, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "resource not found", body["error"])
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(Dependencies{})

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.NotEmpty(t, body.Timestamp)
}

func TestServerConfigValidate(t *testing.T) {
	valid := &ServerConfig{
		Port:            8080,
		Host:            "0.0.0.0",
		ReadTimeout:     defaultTimeout,
		WriteTimeout:    defaultTimeout,
		ShutdownTimeout: defaultTimeout,
		MaxRequestSize:  defaultMaxRequestSize,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr error
	}{
		{"bad port", func(c *ServerConfig) { c.Port = 0 }, ErrInvalidPort},
		{"empty host", func(c *ServerConfig) { c.Host = "" }, ErrEmptyHost},
		{"bad read timeout", func(c *ServerConfig) { c.ReadTimeout = 0 }, ErrInvalidReadTimeout},
		{"bad write timeout", func(c *ServerConfig) { c.WriteTimeout = 0 }, ErrInvalidWriteTimeout},
		{"bad shutdown timeout", func(c *ServerConfig) { c.ShutdownTimeout = 0 }, ErrInvalidShutdownTimeout},
		{"bad max request size", func(c *ServerConfig) { c.MaxRequestSize = 0 }, ErrInvalidMaxRequestSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}
