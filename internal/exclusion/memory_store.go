package exclusion

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a thread-safe in-memory Store. A sweep reads it
// constantly while user feedback occasionally writes, so reads take the
// shared lock. Used by tests and database-less CLI runs.
type MemoryStore struct {
	mutex      sync.RWMutex
	exclusions []*Exclusion
	nextID     int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Add implements Store.
func (s *MemoryStore) Add(_ context.Context, exclusion *Exclusion) (*Exclusion, bool, error) {
	if err := exclusion.Validate(); err != nil {
		return nil, false, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.exclusions {
		if sameRule(existing, exclusion) {
			found := *existing

			return &found, false, nil
		}
	}

	stored := *exclusion
	stored.ID = s.nextID
	stored.CreatedAt = time.Now().UTC()
	s.nextID++

	s.exclusions = append(s.exclusions, &stored)

	created := stored

	return &created, true, nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, id int64) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, existing := range s.exclusions {
		if existing.ID == id {
			s.exclusions = append(s.exclusions[:i], s.exclusions[i+1:]...)

			return true, nil
		}
	}

	return false, nil
}

// RemoveMatching implements Store.
func (s *MemoryStore) RemoveMatching(_ context.Context, searchKey, fingerprint string) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for i, existing := range s.exclusions {
		if existing.Scope == ScopePerQuery &&
			existing.SearchKey == searchKey &&
			existing.FingerprintExcluded == fingerprint {
			s.exclusions = append(s.exclusions[:i], s.exclusions[i+1:]...)

			return true, nil
		}
	}

	return false, nil
}

// FingerprintsExcluded implements Store.
func (s *MemoryStore) FingerprintsExcluded(_ context.Context, searchKey string) (map[string]struct{}, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	fingerprints := make(map[string]struct{})

	for _, existing := range s.exclusions {
		if existing.FingerprintExcluded == "" {
			continue
		}

		if existing.Scope == ScopeGlobal || existing.SearchKey == searchKey {
			fingerprints[existing.FingerprintExcluded] = struct{}{}
		}
	}

	return fingerprints, nil
}

// URLsExcluded implements Store.
func (s *MemoryStore) URLsExcluded(_ context.Context, searchKey string) (map[string]struct{}, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	urls := make(map[string]struct{})

	for _, existing := range s.exclusions {
		if existing.URLExcluded == "" {
			continue
		}

		if existing.Scope == ScopeGlobal || existing.SearchKey == searchKey {
			urls[existing.URLExcluded] = struct{}{}
		}
	}

	return urls, nil
}

// GetByKeySearch implements Store.
func (s *MemoryStore) GetByKeySearch(_ context.Context, searchKey string) ([]*Exclusion, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var matched []*Exclusion

	for _, existing := range s.exclusions {
		if existing.Scope == ScopePerQuery && existing.SearchKey == searchKey {
			found := *existing
			matched = append(matched, &found)
		}
	}

	return matched, nil
}

// GetGlobalExclusions implements Store.
func (s *MemoryStore) GetGlobalExclusions(_ context.Context) ([]*Exclusion, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var matched []*Exclusion

	for _, existing := range s.exclusions {
		if existing.Scope == ScopeGlobal {
			found := *existing
			matched = append(matched, &found)
		}
	}

	return matched, nil
}

// GetAll implements Store.
func (s *MemoryStore) GetAll(_ context.Context) ([]*Exclusion, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	all := make([]*Exclusion, 0, len(s.exclusions))

	for _, existing := range s.exclusions {
		found := *existing
		all = append(all, &found)
	}

	return all, nil
}

// Stats implements Store.
func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := &Stats{Total: len(s.exclusions)}

	for _, existing := range s.exclusions {
		if existing.Scope == ScopeGlobal {
			stats.Global++
		} else {
			stats.PerQuery++
		}

		if existing.FingerprintExcluded != "" {
			stats.Fingerprints++
		}

		if existing.URLExcluded != "" {
			stats.URLs++
		}
	}

	return stats, nil
}
