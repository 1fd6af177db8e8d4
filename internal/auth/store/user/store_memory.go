package user

import (
	"context"
	"fmt"
	"sync"

	"spendwise/internal/auth/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

// InMemoryUserStore keeps users in process memory. Values are copied in and out
// so callers never alias stored state.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]models.User
	byEmail map[string]id.UserID
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyUsed)
	}
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	userID, email := user.ID, user.Email
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.users, userID)
		delete(s.byEmail, email)
	})
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	return &u, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("user with email: %w", sentinel.ErrNotFound)
	}
	u := s.users[userID]
	return &u, nil
}

// FindByIDs returns the users that exist; unknown IDs are skipped.
func (s *InMemoryUserStore) FindByIDs(_ context.Context, userIDs []id.UserID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(userIDs))
	for _, uid := range userIDs {
		if u, ok := s.users[uid]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

// Execute loads the user, runs validate, and applies mutate while holding the lock.
func (s *InMemoryUserStore) Execute(ctx context.Context, userID id.UserID, validate func(*models.User) error, mutate func(*models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, sentinel.ErrNotFound)
	}
	if err := validate(&u); err != nil {
		return nil, err
	}
	prev := u
	mutate(&u)
	s.users[userID] = u
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.users[userID] = prev
	})
	return &u, nil
}
