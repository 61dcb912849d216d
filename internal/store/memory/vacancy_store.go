// Package memory provides an in-memory vacancy store for development and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

type recordKey struct {
	platform   vacancy.Platform
	externalID string
}

// VacancyStore implements vacancy.Store in memory with the same identity
// rules as the Postgres store.
type VacancyStore struct {
	mu       sync.RWMutex
	byKey    map[recordKey]vacancy.Record
	byURL    map[string]recordKey
	inserted []recordKey
}

// NewVacancyStore constructs an empty store.
func NewVacancyStore() *VacancyStore {
	return &VacancyStore{
		byKey: make(map[recordKey]vacancy.Record),
		byURL: make(map[string]recordKey),
	}
}

// Upsert applies the record under (platform, external id), falling back to
// URL identity. The second application of an identical record updates in
// place and reports created=false.
func (s *VacancyStore) Upsert(_ context.Context, rec vacancy.Record) (bool, error) {
	if rec.Title == "" {
		return false, errMissingTitle
	}
	if rec.ExternalID == "" && rec.URL == "" {
		return false, errMissingIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey{platform: rec.Platform, externalID: rec.ExternalID}
	if rec.ExternalID == "" {
		existing, ok := s.byURL[rec.URL]
		if !ok {
			key = recordKey{platform: rec.Platform, externalID: "url:" + rec.URL}
		} else {
			key = existing
		}
	}

	_, exists := s.byKey[key]
	if !exists {
		rec.CreatedAt = time.Now().UTC()
		s.inserted = append(s.inserted, key)
	} else {
		rec.CreatedAt = s.byKey[key].CreatedAt
	}
	s.byKey[key] = rec
	if rec.URL != "" {
		s.byURL[rec.URL] = key
	}
	return !exists, nil
}

// ListRecent returns stored records ordered by publication time descending.
func (s *VacancyStore) ListRecent(_ context.Context, platform vacancy.Platform, limit int) ([]vacancy.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]vacancy.Record, 0, len(s.byKey))
	for _, rec := range s.byKey {
		if platform != "" && rec.Platform != platform {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByPlatform reports the stored row count for one platform.
func (s *VacancyStore) CountByPlatform(_ context.Context, platform vacancy.Platform) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, rec := range s.byKey {
		if rec.Platform == platform {
			count++
		}
	}
	return count, nil
}

// Len reports the total stored rows (test helper).
func (s *VacancyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}
