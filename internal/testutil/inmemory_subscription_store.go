package testutil

import (
	"context"
	"sync"

	"github.com/billsync/billsync/internal/domain/billing"
	ierr "github.com/billsync/billsync/internal/errors"
)

// InMemorySubscriptionStore implements billing.Repository
type InMemorySubscriptionStore struct {
	mu            sync.RWMutex
	subscriptions map[string]*billing.Subscription
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		subscriptions: make(map[string]*billing.Subscription),
	}
}

func (s *InMemorySubscriptionStore) GetByOrganizationID(ctx context.Context, organizationID string) (*billing.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, exists := s.subscriptions[organizationID]
	if !exists {
		return nil, nil
	}

	copied := *sub
	return &copied, nil
}

func (s *InMemorySubscriptionStore) GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*billing.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.ProviderSubscriptionID == providerSubscriptionID {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *billing.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Please provide a valid subscription").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sub
	s.subscriptions[sub.OrganizationID] = &copied
	return nil
}

// Clear removes all subscriptions from the store
func (s *InMemorySubscriptionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]*billing.Subscription)
}
