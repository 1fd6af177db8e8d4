package authlockout

import (
	"context"
	"sync"
	"time"

	"spendwise/internal/ratelimit/models"
)

// InMemoryStore keeps lockout records in process memory. Records are copied in
// and out so callers never alias stored state.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]models.AuthLockout
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]models.AuthLockout)}
}

// Get returns nil when no failure was recorded for identifier.
func (s *InMemoryStore) Get(_ context.Context, identifier string) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[identifier]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// RecordFailure counts one failure atomically and returns the updated record.
func (s *InMemoryStore) RecordFailure(_ context.Context, identifier string, now time.Time, window time.Duration) (*models.AuthLockout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := s.records[identifier]
	record.Identifier = identifier
	record.ApplyFailure(now, window)
	s.records[identifier] = record
	return &record, nil
}

func (s *InMemoryStore) Update(_ context.Context, record *models.AuthLockout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Identifier] = *record
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, identifier)
	return nil
}
