package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"spendwise/internal/friendship/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

// InMemoryStore keeps friendships in memory, indexed by unordered user pair.
type InMemoryStore struct {
	mu          sync.RWMutex
	friendships map[id.FriendshipID]models.Friendship
	byPair      map[pairKey]id.FriendshipID
}

type pairKey struct {
	low, high string
}

func keyFor(a, b id.UserID) pairKey {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return pairKey{low: x, high: y}
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		friendships: make(map[id.FriendshipID]models.Friendship),
		byPair:      make(map[pairKey]id.FriendshipID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, f *models.Friendship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyFor(f.RequesterID, f.RecipientID)
	if _, exists := s.byPair[key]; exists {
		return fmt.Errorf("friendship pair: %w", sentinel.ErrAlreadyUsed)
	}
	s.friendships[f.ID] = *f
	s.byPair[key] = f.ID
	friendshipID := f.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.friendships, friendshipID)
		delete(s.byPair, key)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, friendshipID id.FriendshipID) (*models.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.friendships[friendshipID]
	if !ok {
		return nil, fmt.Errorf("friendship %s: %w", friendshipID, sentinel.ErrNotFound)
	}
	return &f, nil
}

// FindBetween returns the record for the unordered pair (a, b).
func (s *InMemoryStore) FindBetween(_ context.Context, a, b id.UserID) (*models.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fid, ok := s.byPair[keyFor(a, b)]
	if !ok {
		return nil, fmt.Errorf("friendship pair: %w", sentinel.ErrNotFound)
	}
	f := s.friendships[fid]
	return &f, nil
}

// ListByUser returns the user's friendships in the given statuses, most recently updated first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, statuses ...models.Status) ([]*models.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Friendship
	for _, f := range s.friendships {
		if !f.Involves(userID) || !slices.Contains(statuses, f.Status) {
			continue
		}
		out = append(out, &f)
	}
	slices.SortFunc(out, func(a, b *models.Friendship) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Execute(ctx context.Context, friendshipID id.FriendshipID, validate func(*models.Friendship) error, mutate func(*models.Friendship)) (*models.Friendship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.friendships[friendshipID]
	if !ok {
		return nil, fmt.Errorf("friendship %s: %w", friendshipID, sentinel.ErrNotFound)
	}
	if err := validate(&f); err != nil {
		return nil, err
	}
	prev := f
	mutate(&f)
	s.friendships[friendshipID] = f
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.friendships[friendshipID] = prev
	})
	return &f, nil
}
