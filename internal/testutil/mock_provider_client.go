package testutil

import (
	"context"
	"sync"

	ierr "github.com/billsync/billsync/internal/errors"
	"github.com/billsync/billsync/internal/service"
	"github.com/billsync/billsync/internal/types"
)

var _ service.ProviderClient = (*MockProviderClient)(nil)

// MockProviderClient is a canned-response provider API client for tests
type MockProviderClient struct {
	mu            sync.RWMutex
	subscriptions map[string]*types.ProviderSubscriptionSnapshot
}

// NewMockProviderClient creates a new mock provider client
func NewMockProviderClient() *MockProviderClient {
	return &MockProviderClient{
		subscriptions: make(map[string]*types.ProviderSubscriptionSnapshot),
	}
}

// SetSubscription registers a snapshot to be returned by GetSubscription
func (c *MockProviderClient) SetSubscription(snapshot *types.ProviderSubscriptionSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions[snapshot.ID] = snapshot
}

func (c *MockProviderClient) GetSubscription(ctx context.Context, subscriptionID string) (*types.ProviderSubscriptionSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, exists := c.subscriptions[subscriptionID]
	if !exists {
		return nil, ierr.NewErrorf("subscription %s not found at provider", subscriptionID).
			Mark(ierr.ErrProviderAPI)
	}

	copied := *snapshot
	return &copied, nil
}

// Clear removes all registered snapshots
func (c *MockProviderClient) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscriptions = make(map[string]*types.ProviderSubscriptionSnapshot)
}
