// Package exclusion implements the suppression store: user feedback
// (rejections and explicit excludes) becomes rules that drop matching
// candidates from future searches, scoped to one search key or globally.
package exclusion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Data-Integrities/DeathWatch-sub000/internal/normalize"
)

// Scope determines which searches an exclusion applies to.
type Scope string

// Exclusion scopes. PerQuery rules require a search key; global rules
// forbid one.
const (
	ScopePerQuery Scope = "per-query"
	ScopeGlobal   Scope = "global"
)

// DefaultReason annotates rejections that carried no explicit reason.
const DefaultReason = "wrong person"

var (
	// ErrSearchKeyRequired is returned when a per-query exclusion has no
	// search key.
	ErrSearchKeyRequired = errors.New("per-query exclusion requires a search key")

	// ErrSearchKeyForbidden is returned when a global exclusion carries a
	// search key.
	ErrSearchKeyForbidden = errors.New("global exclusion must not carry a search key")

	// ErrNoTarget is returned when neither a fingerprint nor a URL is given.
	ErrNoTarget = errors.New("exclusion requires a fingerprint or a url")

	// ErrInvalidScope is returned for unknown scope values.
	ErrInvalidScope = errors.New("invalid exclusion scope")

	// ErrNotFound is returned when an exclusion id does not exist.
	ErrNotFound = errors.New("exclusion not found")
)

type (
	// Exclusion is one suppression rule. URLExcluded is stored in
	// normalized form (see normalize.URL); NameExcluded and Reason are
	// informational.
	Exclusion struct {
		ID                  int64     `json:"id"`
		Scope               Scope     `json:"scope"`
		SearchKey           string    `json:"searchKey,omitempty"`
		FingerprintExcluded string    `json:"fingerprintExcluded,omitempty"`
		URLExcluded         string    `json:"urlExcluded,omitempty"`
		NameExcluded        string    `json:"nameExcluded,omitempty"`
		Reason              string    `json:"reason,omitempty"`
		CreatedAt           time.Time `json:"createdAt"`
	}

	// Stats summarizes the store for tooling.
	Stats struct {
		Total        int `json:"total"`
		PerQuery     int `json:"perQuery"`
		Global       int `json:"global"`
		Fingerprints int `json:"fingerprints"`
		URLs         int `json:"urls"`
	}

	// Store is the suppression-rule interface. FingerprintsExcluded and
	// URLsExcluded satisfy the search engine's filter contract; both
	// return the union of per-key and global rules.
	Store interface {
		// Add inserts a rule, idempotent on (scope, searchKey,
		// fingerprint, normalizedURL). isNew is false when the identical
		// rule already existed.
		Add(ctx context.Context, exclusion *Exclusion) (*Exclusion, bool, error)

		// Remove deletes a rule by id; reports whether it existed.
		Remove(ctx context.Context, id int64) (bool, error)

		// RemoveMatching deletes the per-query rule matching a search key
		// and fingerprint, if present. Used by restore.
		RemoveMatching(ctx context.Context, searchKey, fingerprint string) (bool, error)

		FingerprintsExcluded(ctx context.Context, searchKey string) (map[string]struct{}, error)
		URLsExcluded(ctx context.Context, searchKey string) (map[string]struct{}, error)

		GetByKeySearch(ctx context.Context, searchKey string) ([]*Exclusion, error)
		GetGlobalExclusions(ctx context.Context) ([]*Exclusion, error)
		GetAll(ctx context.Context) ([]*Exclusion, error)
		Stats(ctx context.Context) (*Stats, error)
	}
)

// Validate checks scope and target invariants and normalizes the URL in
// place. Called by every store before insert.
func (e *Exclusion) Validate() error {
	switch e.Scope {
	case ScopePerQuery:
		if strings.TrimSpace(e.SearchKey) == "" {
			return ErrSearchKeyRequired
		}
	case ScopeGlobal:
		if strings.TrimSpace(e.SearchKey) != "" {
			return ErrSearchKeyForbidden
		}
	default:
		return ErrInvalidScope
	}

	if strings.TrimSpace(e.FingerprintExcluded) == "" && strings.TrimSpace(e.URLExcluded) == "" {
		return ErrNoTarget
	}

	e.URLExcluded = normalize.URL(e.URLExcluded)

	if e.Reason == "" {
		e.Reason = DefaultReason
	}

	return nil
}

// sameRule reports whether two exclusions target the same tuple.
func sameRule(a, b *Exclusion) bool {
	return a.Scope == b.Scope &&
		a.SearchKey == b.SearchKey &&
		a.FingerprintExcluded == b.FingerprintExcluded &&
		a.URLExcluded == b.URLExcluded
}
