// Package storage provides the PostgreSQL persistence layer: saved
// searches, batch-produced results, batch records, and service API keys.
package storage

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/search"
)

const (
	// API key format constants.
	randomBytesSize = 32
	apiKeyPrefix    = "deathwatch_ak_"
	prefixLen       = 18
	suffixLen       = 4
)

var (
	// ErrKeyAlreadyExists is returned when attempting to add a key that already exists.
	ErrKeyAlreadyExists = errors.New("API key already exists")
	// ErrKeyNotFound is returned when attempting to operate on a non-existent key.
	ErrKeyNotFound = errors.New("API key not found")
	// ErrKeyNil is returned when a nil API key is provided.
	ErrKeyNil = errors.New("API key cannot be nil")
	// ErrKeyStringEmpty is returned when key string is empty during parsing.
	ErrKeyStringEmpty = errors.New("key string cannot be empty")

	// ErrQueryNotFound is returned when a saved search does not exist.
	ErrQueryNotFound = errors.New("saved search not found")
	// ErrResultNotFound is returned when a result does not exist.
	ErrResultNotFound = errors.New("result not found")
	// ErrBatchNotFound is returned when a batch record does not exist.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrQueryConfirmed is returned on attempts to mutate a confirmed,
	// frozen saved search.
	ErrQueryConfirmed = errors.New("cannot edit a confirmed search")
)

// ResultStatus is the lifecycle state of a stored result.
type ResultStatus string

// Result lifecycle states. Every result starts pending; confirm and reject
// are user decisions, restore returns a rejected result to pending.
const (
	StatusPending   ResultStatus = "pending"
	StatusConfirmed ResultStatus = "confirmed"
	StatusRejected  ResultStatus = "rejected"
)

type (
	// SavedSearch is a persisted person-watch row (table user_query). The
	// search key is refreshed whenever the engine computes a different one
	// than stored.
	SavedSearch struct {
		ID          int64      `json:"id"`
		LoginID     string     `json:"loginId"`
		FirstName   string     `json:"firstName"`
		MiddleName  string     `json:"middleName,omitempty"`
		NickName    string     `json:"nickName,omitempty"`
		LastName    string     `json:"lastName"`
		City        string     `json:"city,omitempty"`
		State       string     `json:"state,omitempty"`
		Age         int        `json:"age,omitempty"`
		KeyWords    string     `json:"keyWords,omitempty"`
		InputDate   string     `json:"inputDate,omitempty"`
		SearchKey   string     `json:"searchKey"`
		Disabled    bool       `json:"disabled"`
		Confirmed   bool       `json:"confirmed"`
		ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
		CreatedAt   time.Time  `json:"createdAt"`
		UpdatedAt   time.Time  `json:"updatedAt"`
	}

	// StoredResult is a persisted candidate attached to a saved search
	// (table user_result). ran_dt equals the creating batch's created_at.
	StoredResult struct {
		ID             string        `json:"id"`
		UserQueryID    int64         `json:"userQueryId"`
		Rank           int           `json:"rank"`
		NameFull       string        `json:"nameFull"`
		NameFirst      string        `json:"nameFirst,omitempty"`
		NameLast       string        `json:"nameLast,omitempty"`
		Age            int           `json:"age,omitempty"`
		DOD            string        `json:"dod,omitempty"`
		City           string        `json:"city,omitempty"`
		State          string        `json:"state,omitempty"`
		Source         string        `json:"source"`
		URL            string        `json:"url"`
		Snippet        string        `json:"snippet,omitempty"`
		Provider       string        `json:"provider"`
		ImageURL       string        `json:"imageUrl,omitempty"`
		AlsoFoundAt    []string      `json:"alsoFoundAt,omitempty"`
		DateVisitation string        `json:"dateVisitation,omitempty"`
		DateFuneral    string        `json:"dateFuneral,omitempty"`
		Fingerprint    string        `json:"fingerprint"`
		ScoresCriteria search.Scores `json:"scoresCriteria"`
		ScoreFinal     int           `json:"scoreFinal"`
		ScoreMax       int           `json:"scoreMax"`
		CriteriaCnt    int           `json:"criteriaCnt"`
		IsRead         bool          `json:"isRead"`
		Status         ResultStatus  `json:"status"`
		RanDt          time.Time     `json:"ranDt"`
	}

	// Batch records one daily sweep (table batches).
	Batch struct {
		ID           string    `json:"id"`
		InputFile    string    `json:"inputFile,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
		TotalQueries int       `json:"totalQueries"`
		TotalResults int       `json:"totalResults"`
	}

	// Key is a service API key used by the optional request-auth layer.
	Key struct {
		ID        string     `json:"id"`
		Key       string     `json:"key"`
		Name      string     `json:"name"`
		CreatedAt time.Time  `json:"createdAt"`
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`
		Active    bool       `json:"active"`
	}

	// KeyStore is the API key lookup interface consumed by the auth
	// middleware.
	KeyStore interface {
		FindByKey(key string) (*Key, bool)
		Add(apiKey *Key) error
		Delete(keyID string) error
	}
)

// ResultFromCandidate maps an engine candidate onto a result row for one
// saved search and batch timestamp.
func ResultFromCandidate(queryID int64, candidate *search.Candidate, ranDt time.Time) *StoredResult {
	return &StoredResult{
		ID:             candidate.ID,
		UserQueryID:    queryID,
		Rank:           candidate.Rank,
		NameFull:       candidate.NameFull,
		NameFirst:      candidate.NameFirst,
		NameLast:       candidate.NameLast,
		Age:            candidate.Age,
		DOD:            candidate.DOD,
		City:           candidate.City,
		State:          candidate.State,
		Source:         candidate.Source,
		URL:            candidate.URL,
		Snippet:        candidate.Snippet,
		Provider:       string(candidate.Provider),
		ImageURL:       candidate.ImageURL,
		AlsoFoundAt:    candidate.AlsoFoundAt,
		DateVisitation: candidate.DateVisitation,
		DateFuneral:    candidate.DateFuneral,
		Fingerprint:    candidate.Fingerprint,
		ScoresCriteria: candidate.ScoresCriteria,
		ScoreFinal:     candidate.ScoreFinal,
		ScoreMax:       candidate.ScoreMax,
		CriteriaCnt:    candidate.CriteriaCnt,
		IsRead:         false,
		Status:         StatusPending,
		RanDt:          ranDt,
	}
}

// Query converts a saved search back into an engine query.
func (s *SavedSearch) Query() *search.Query {
	return &search.Query{
		FirstName:  s.FirstName,
		MiddleName: s.MiddleName,
		NickName:   s.NickName,
		LastName:   s.LastName,
		City:       s.City,
		State:      s.State,
		Age:        s.Age,
		KeyWords:   s.KeyWords,
		InputDate:  s.InputDate,
	}
}

// ValidateKey performs a constant-time comparison of the provided key,
// honoring active and expiry flags.
func (ak *Key) ValidateKey(providedKey string) bool {
	if providedKey == "" || ak.Key == "" {
		return false
	}

	if !ak.Active {
		return false
	}

	if ak.ExpiresAt != nil && time.Now().After(*ak.ExpiresAt) {
		return false
	}

	return SecureCompare(ak.Key, providedKey)
}

// SecureCompare performs constant-time comparison of two strings to prevent
// timing attacks.
func SecureCompare(a, b string) bool {
	if len(a) != len(b) {
		// Burn comparable time before rejecting.
		_ = subtle.ConstantTimeCompare([]byte(a), []byte(a))

		return false
	}

	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateAPIKey creates a new service key string with the standard prefix
// and 32 bytes of hex-encoded randomness.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, randomBytesSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate API key: %w", err)
	}

	return apiKeyPrefix + hex.EncodeToString(buf), nil
}

// MaskKey renders an API key safe for logs: prefix, ellipsis, last 4.
func MaskKey(key string) string {
	if len(key) <= prefixLen+suffixLen {
		return strings.Repeat("*", len(key))
	}

	return key[:prefixLen] + "..." + key[len(key)-suffixLen:]
}
