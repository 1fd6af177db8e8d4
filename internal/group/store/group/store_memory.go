package group

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"spendwise/internal/group/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

// InMemoryGroupStore keeps groups in process memory. Soft-deleted groups stay in
// the map but every read treats them as missing.
type InMemoryGroupStore struct {
	mu     sync.RWMutex
	groups map[id.GroupID]models.Group
}

func NewInMemoryGroupStore() *InMemoryGroupStore {
	return &InMemoryGroupStore{groups: make(map[id.GroupID]models.Group)}
}

func (s *InMemoryGroupStore) Create(ctx context.Context, g *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[g.ID]; exists {
		return fmt.Errorf("group %s: %w", g.ID, sentinel.ErrAlreadyUsed)
	}
	s.groups[g.ID] = *g
	groupID := g.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.groups, groupID)
	})
	return nil
}

// FindByID returns an active group.
func (s *InMemoryGroupStore) FindByID(_ context.Context, groupID id.GroupID) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked(groupID)
}

// ListByIDs returns the active groups among groupIDs, newest first.
func (s *InMemoryGroupStore) ListByIDs(_ context.Context, groupIDs []id.GroupID) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Group, 0, len(groupIDs))
	for _, groupID := range groupIDs {
		g, err := s.activeLocked(groupID)
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *models.Group) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryGroupStore) Execute(ctx context.Context, groupID id.GroupID, validate func(*models.Group) error, mutate func(*models.Group) error) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.activeLocked(groupID)
	if err != nil {
		return nil, err
	}
	if err := validate(g); err != nil {
		return nil, err
	}
	prev := *g
	if err := mutate(g); err != nil {
		return nil, err
	}
	s.groups[groupID] = *g
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.groups[groupID] = prev
	})
	return g, nil
}

func (s *InMemoryGroupStore) activeLocked(groupID id.GroupID) (*models.Group, error) {
	g, ok := s.groups[groupID]
	if !ok || !g.IsActive() {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	return &g, nil
}
