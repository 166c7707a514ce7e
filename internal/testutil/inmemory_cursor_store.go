package testutil

import (
	"context"
	"sync"

	"github.com/billsync/billsync/internal/domain/cursor"
	ierr "github.com/billsync/billsync/internal/errors"
)

// InMemoryCursorStore implements cursor.Repository
type InMemoryCursorStore struct {
	mu      sync.RWMutex
	cursors map[string]*cursor.Cursor
}

// NewInMemoryCursorStore creates a new in-memory cursor store
func NewInMemoryCursorStore() *InMemoryCursorStore {
	return &InMemoryCursorStore{
		cursors: make(map[string]*cursor.Cursor),
	}
}

func (s *InMemoryCursorStore) Get(ctx context.Context, subscriptionID string) (*cursor.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.cursors[subscriptionID]
	if !exists {
		return nil, nil
	}

	copied := *c
	return &copied, nil
}

func (s *InMemoryCursorStore) Upsert(ctx context.Context, c *cursor.Cursor) error {
	if c == nil {
		return ierr.NewError("cursor cannot be nil").
			WithHint("Please provide a valid cursor").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *c
	s.cursors[c.SubscriptionID] = &copied
	return nil
}

// Clear removes all cursors from the store
func (s *InMemoryCursorStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = make(map[string]*cursor.Cursor)
}
