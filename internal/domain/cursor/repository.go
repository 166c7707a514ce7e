package cursor

import "context"

type Repository interface {
	// Get returns the cursor for a subscription, or nil when none exists yet
	Get(ctx context.Context, subscriptionID string) (*Cursor, error)

	// Upsert writes the cursor row for the subscription, replacing any
	// previous snapshot
	Upsert(ctx context.Context, cursor *Cursor) error
}
