package service

import (
	"github.com/billsync/billsync/internal/domain/cursor"
	"github.com/billsync/billsync/internal/types"
)

// ShouldIgnoreOutOfOrder decides whether an incoming event is stale relative to
// the subscription's cursor. Deterministic and total: every (cursor, incoming)
// pair yields accept or reject, never an error.
//
// No cursor means no event has been applied yet, so anything is acceptable.
// Otherwise the provider timestamp orders events; equal timestamps fall back to
// a fixed precedence over event types, since the provider can emit events of
// the same tick in a non-causal delivery order.
func ShouldIgnoreOutOfOrder(c *cursor.Cursor, incoming *types.WebhookEnvelope) bool {
	if c == nil {
		return false
	}

	if incoming.CreatedAt.Before(c.LastEventCreatedAt) {
		return true
	}
	if incoming.CreatedAt.After(c.LastEventCreatedAt) {
		return false
	}

	return types.EventPrecedence(incoming.EventType) < types.EventPrecedence(c.LastEventType)
}
