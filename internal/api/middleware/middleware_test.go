package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/storage"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCorrelationIDGenerated(t *testing.T) {
	var seen string

	handler := Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}), WithCorrelationID())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Len(t, seen, 16)
	assert.Equal(t, seen, rec.Header().Get("X-Correlation-ID"))
}

func TestCorrelationIDHonorsIncomingHeader(t *testing.T) {
	handler := Apply(okHandler(), WithCorrelationID())

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("X-Correlation-ID", "abc123")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc123", rec.Header().Get("X-Correlation-ID"))
}

func TestRecoveryReturnsErrorBody(t *testing.T) {
	handler := Apply(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithCorrelationID(), WithRecovery(discardLogger()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
}

func newKeyStore(t *testing.T) (storage.KeyStore, string) {
	t.Helper()

	store := storage.NewInMemoryKeyStore()

	key, err := storage.GenerateAPIKey()
	require.NoError(t, err)

	require.NoError(t, store.Add(&storage.Key{
		ID:        "key-1",
		Key:       key,
		Name:      "reviewer-ui",
		CreatedAt: time.Now(),
		Active:    true,
	}))

	return store, key
}

func TestAuthenticateRejectsMissingKey(t *testing.T) {
	store, _ := newKeyStore(t)
	handler := Apply(okHandler(), WithAuth(store, discardLogger()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "missing API key")
}

func TestAuthenticateAcceptsValidKey(t *testing.T) {
	store, key := newKeyStore(t)

	var caller Caller

	handler := Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = GetCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	}), WithAuth(store, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("X-Api-Key", key)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key-1", caller.KeyID)
	assert.Equal(t, "reviewer-ui", caller.Name)
}

func TestAuthenticateAcceptsBearerHeader(t *testing.T) {
	store, key := newKeyStore(t)
	handler := Apply(okHandler(), WithAuth(store, discardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.Header.Set("Authorization", "Bearer "+key)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateBypassesPublicEndpoints(t *testing.T) {
	store, _ := newKeyStore(t)

	RegisterPublicEndpoint("/health")

	handler := Apply(okHandler(), WithAuth(store, discardLogger()))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitReturns429(t *testing.T) {
	limiter := NewInMemoryRateLimiter(&Config{GlobalRPS: 1, KeyRPS: 1, UnAuthRPS: 1, UnAuthBurst: 1, GlobalBurst: 1})
	defer func() { _ = limiter.Close() }()

	handler := Apply(okHandler(), WithRateLimit(limiter, discardLogger()))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/search", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/search", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitPerKeyIsolation(t *testing.T) {
	limiter := NewInMemoryRateLimiter(&Config{GlobalRPS: 100, KeyRPS: 1, UnAuthRPS: 1, KeyBurst: 1})
	defer func() { _ = limiter.Close() }()

	assert.True(t, limiter.Allow("key-a"))
	assert.False(t, limiter.Allow("key-a"), "second hit on same key exceeds burst")
	assert.True(t, limiter.Allow("key-b"), "other keys keep their own bucket")
}

type corsSettings struct{}

func (corsSettings) GetAllowedOrigins() []string { return []string{"*"} }
func (corsSettings) GetAllowedMethods() []string { return []string{"GET", "POST", "DELETE"} }
func (corsSettings) GetAllowedHeaders() []string { return []string{"Content-Type", "X-Api-Key"} }
func (corsSettings) GetMaxAge() int              { return 600 }

func TestCORSPreflight(t *testing.T) {
	handler := Apply(okHandler(), WithCORS(corsSettings{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/search", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}
