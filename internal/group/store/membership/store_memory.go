package membership

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

type groupUserKey struct {
	group id.GroupID
	user  id.UserID
}

// InMemoryMembershipStore keeps memberships in process memory with a unique
// (group, user) index.
type InMemoryMembershipStore struct {
	mu          sync.RWMutex
	memberships map[id.MembershipID]models.Membership
	byGroupUser map[groupUserKey]id.MembershipID
}

func NewInMemoryMembershipStore() *InMemoryMembershipStore {
	return &InMemoryMembershipStore{
		memberships: make(map[id.MembershipID]models.Membership),
		byGroupUser: make(map[groupUserKey]id.MembershipID),
	}
}

func (s *InMemoryMembershipStore) Create(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupUserKey{group: m.GroupID, user: m.UserID}
	if _, exists := s.byGroupUser[key]; exists {
		return fmt.Errorf("membership for group %s: %w", m.GroupID, sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.memberships[m.ID]; exists {
		return fmt.Errorf("membership %s: %w", m.ID, sentinel.ErrAlreadyUsed)
	}
	s.memberships[m.ID] = *m
	s.byGroupUser[key] = m.ID
	membershipID := m.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.memberships, membershipID)
		delete(s.byGroupUser, key)
	})
	return nil
}

func (s *InMemoryMembershipStore) FindByID(_ context.Context, membershipID id.MembershipID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[membershipID]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", membershipID, sentinel.ErrNotFound)
	}
	return &m, nil
}

func (s *InMemoryMembershipStore) FindByGroupAndUser(_ context.Context, groupID id.GroupID, userID id.UserID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	membershipID, ok := s.byGroupUser[groupUserKey{group: groupID, user: userID}]
	if !ok {
		return nil, fmt.Errorf("membership for group %s: %w", groupID, sentinel.ErrNotFound)
	}
	m := s.memberships[membershipID]
	return &m, nil
}

// ListByGroup returns the group's memberships in the given statuses, oldest first.
func (s *InMemoryMembershipStore) ListByGroup(_ context.Context, groupID id.GroupID, statuses ...models.Status) ([]*models.Membership, error) {
	return s.list(func(m *models.Membership) bool {
		return m.GroupID == groupID && slices.Contains(statuses, m.Status)
	}), nil
}

// ListByUser returns the user's memberships in the given statuses, oldest first.
func (s *InMemoryMembershipStore) ListByUser(_ context.Context, userID id.UserID, statuses ...models.Status) ([]*models.Membership, error) {
	return s.list(func(m *models.Membership) bool {
		return m.UserID == userID && slices.Contains(statuses, m.Status)
	}), nil
}

// CountAccepted returns the number of accepted memberships per group.
func (s *InMemoryMembershipStore) CountAccepted(_ context.Context, groupIDs []id.GroupID) (map[id.GroupID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.GroupID]int, len(groupIDs))
	for _, m := range s.memberships {
		if m.Status == models.StatusAccepted && slices.Contains(groupIDs, m.GroupID) {
			counts[m.GroupID]++
		}
	}
	return counts, nil
}

func (s *InMemoryMembershipStore) Execute(ctx context.Context, membershipID id.MembershipID, validate func(*models.Membership) error, mutate func(*models.Membership)) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[membershipID]
	if !ok {
		return nil, fmt.Errorf("membership %s: %w", membershipID, sentinel.ErrNotFound)
	}
	if err := validate(&m); err != nil {
		return nil, err
	}
	prev := m
	mutate(&m)
	s.memberships[membershipID] = m
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.memberships[membershipID] = prev
	})
	return &m, nil
}

func (s *InMemoryMembershipStore) list(match func(*models.Membership) bool) []*models.Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Membership
	for _, m := range s.memberships {
		if match(&m) {
			out = append(out, &m)
		}
	}
	slices.SortFunc(out, func(a, b *models.Membership) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}
