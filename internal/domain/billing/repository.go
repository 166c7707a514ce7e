package billing

import "context"

type Repository interface {
	// GetByOrganizationID returns the aggregate for an organization, or nil
	// when the organization has no subscription row yet
	GetByOrganizationID(ctx context.Context, organizationID string) (*Subscription, error)

	// GetByProviderSubscriptionID looks the aggregate up by its external
	// subscription id, or nil when unknown
	GetByProviderSubscriptionID(ctx context.Context, providerSubscriptionID string) (*Subscription, error)

	// Upsert writes the aggregate keyed by organization id
	Upsert(ctx context.Context, subscription *Subscription) error
}
