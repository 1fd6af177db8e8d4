package outbox

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/notification/models"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

// InMemoryStore keeps outbox entries in insertion order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.OutboxEntry
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(ctx context.Context, e *models.OutboxEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.ID == e.ID {
			return fmt.Errorf("outbox entry %s: %w", e.ID, sentinel.ErrAlreadyUsed)
		}
	}
	s.entries = append(s.entries, *e)
	entryID := e.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries = slices.DeleteFunc(s.entries, func(x models.OutboxEntry) bool { return x.ID == entryID })
	})
	return nil
}

// FetchUnpublished returns up to limit unpublished entries, oldest first.
func (s *InMemoryStore) FetchUnpublished(_ context.Context, limit int) ([]*models.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.OutboxEntry
	for _, e := range s.entries {
		if e.PublishedAt != nil {
			continue
		}
		out = append(out, &e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var marked []uuid.UUID
	for i := range s.entries {
		if slices.Contains(ids, s.entries[i].ID) && s.entries[i].PublishedAt == nil {
			published := at
			s.entries[i].PublishedAt = &published
			marked = append(marked, s.entries[i].ID)
		}
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i := range s.entries {
			if slices.Contains(marked, s.entries[i].ID) {
				s.entries[i].PublishedAt = nil
			}
		}
	})
	return nil
}

func (s *InMemoryStore) CountUnpublished(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, e := range s.entries {
		if e.PublishedAt == nil {
			count++
		}
	}
	return count, nil
}

// All returns a copy of every entry. Used by tests.
func (s *InMemoryStore) All() []models.OutboxEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}
