package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

// InMemoryStore keeps notifications in process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]models.Notification
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[id.NotificationID]models.Notification)}
}

func (s *InMemoryStore) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[n.ID]; exists {
		return fmt.Errorf("notification %s: %w", n.ID, sentinel.ErrAlreadyUsed)
	}
	s.notifications[n.ID] = *n
	notificationID := n.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.notifications, notificationID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notificationID, sentinel.ErrNotFound)
	}
	return &n, nil
}

// ListByUser returns the newest notifications first. limit <= 0 means no limit.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, unreadOnly bool, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, &n)
	}
	slices.SortFunc(out, func(a, b *models.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Execute(ctx context.Context, notificationID id.NotificationID, validate func(*models.Notification) error, mutate func(*models.Notification)) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notificationID, sentinel.ErrNotFound)
	}
	if err := validate(&n); err != nil {
		return nil, err
	}
	prev := n
	mutate(&n)
	s.notifications[notificationID] = n
	tx.OnRollback(ctx, func() { s.put(prev) })
	return &n, nil
}

// MarkAllRead marks every unread notification of userID as read and returns how many changed.
func (s *InMemoryStore) MarkAllRead(ctx context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for nid, n := range s.notifications {
		if n.UserID != userID || n.IsRead {
			continue
		}
		prev := n
		n.IsRead = true
		s.notifications[nid] = n
		tx.OnRollback(ctx, func() { s.put(prev) })
		updated++
	}
	return updated, nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) put(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
}
