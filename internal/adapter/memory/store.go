// Package memory holds prediction records in process memory. It is the
// default store when no Postgres DSN is configured and the backing store
// for unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hydrotech/groundwater-serve/internal/domain"
)

// Store implements service.Store over a mutex-guarded map. Records are
// copied in and out, so callers can never alias the stored state.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.PredictionRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{records: make(map[string]domain.PredictionRecord)}
}

// Save inserts or replaces a record by ID.
func (s *Store) Save(_ context.Context, rec domain.PredictionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	return nil
}

// FindByUser returns a user's records, newest first, capped at limit.
func (s *Store) FindByUser(_ context.Context, userID string, limit int) ([]domain.PredictionRecord, error) {
	return s.filter(limit, true, func(rec domain.PredictionRecord) bool {
		return rec.UserID == userID
	}), nil
}

// FindByUserAndZone returns a user's records for one zone, newest first,
// capped at limit.
func (s *Store) FindByUserAndZone(_ context.Context, userID, zone string, limit int) ([]domain.PredictionRecord, error) {
	return s.filter(limit, true, func(rec domain.PredictionRecord) bool {
		return rec.UserID == userID && rec.Zone == zone
	}), nil
}

// FindInRange returns a zone's records created at or after since, oldest
// first. A zero since keeps everything.
func (s *Store) FindInRange(_ context.Context, zone string, since time.Time) ([]domain.PredictionRecord, error) {
	return s.filter(0, false, func(rec domain.PredictionRecord) bool {
		return rec.Zone == zone && !rec.CreatedAt.Before(since)
	}), nil
}

// Delete removes a record when both the ID and owning user match. It
// reports whether a record was removed.
func (s *Store) Delete(_ context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.UserID != userID {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// filter collects matching records sorted by creation time. newestFirst
// selects the sort direction; limit <= 0 means unbounded.
func (s *Store) filter(limit int, newestFirst bool, match func(domain.PredictionRecord) bool) []domain.PredictionRecord {
	s.mu.RLock()
	out := make([]domain.PredictionRecord, 0)
	for _, rec := range s.records {
		if match(rec) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
