package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"spendwise/internal/expense/models"
	id "spendwise/pkg/domain"
	"spendwise/pkg/platform/sentinel"
	"spendwise/pkg/platform/tx"
)

// InMemoryStore keeps expenses in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	expenses map[id.ExpenseID]models.Expense
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{expenses: make(map[id.ExpenseID]models.Expense)}
}

func (s *InMemoryStore) Create(ctx context.Context, e *models.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.expenses[e.ID]; exists {
		return fmt.Errorf("expense %s: %w", e.ID, sentinel.ErrAlreadyUsed)
	}
	s.expenses[e.ID] = *e
	expenseID := e.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.expenses, expenseID)
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, expenseID id.ExpenseID) (*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, sentinel.ErrNotFound)
	}
	return &e, nil
}

// ListByUser returns the user's expenses matching filter, newest date first.
func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID, filter models.Filter) ([]*models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Expense
	for _, e := range s.expenses {
		if e.UserID != userID || !filter.Matches(&e) {
			continue
		}
		out = append(out, &e)
	}
	slices.SortFunc(out, func(a, b *models.Expense) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *InMemoryStore) Execute(ctx context.Context, expenseID id.ExpenseID, validate func(*models.Expense) error, mutate func(*models.Expense) error) (*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[expenseID]
	if !ok {
		return nil, fmt.Errorf("expense %s: %w", expenseID, sentinel.ErrNotFound)
	}
	if err := validate(&e); err != nil {
		return nil, err
	}
	prev := e
	if err := mutate(&e); err != nil {
		return nil, err
	}
	s.expenses[expenseID] = e
	tx.OnRollback(ctx, func() { s.put(prev) })
	return &e, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, expenseID id.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.expenses[expenseID]
	if !ok {
		return fmt.Errorf("expense %s: %w", expenseID, sentinel.ErrNotFound)
	}
	delete(s.expenses, expenseID)
	tx.OnRollback(ctx, func() { s.put(prev) })
	return nil
}

func (s *InMemoryStore) put(e models.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
}
