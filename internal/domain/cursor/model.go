package cursor

import (
	"time"

	"github.com/billsync/billsync/internal/types"
)

// Cursor is the per-subscription pointer to the most recently applied event.
// It only ever advances through events that passed the ordering gate.
type Cursor struct {
	SubscriptionID     string                  `db:"subscription_id" json:"subscription_id"`
	LastEventID        string                  `db:"last_event_id" json:"last_event_id"`
	LastEventType      types.ProviderEventType `db:"last_event_type" json:"last_event_type"`
	LastEventCreatedAt time.Time               `db:"last_event_created_at" json:"last_event_created_at"`
	UpdatedAt          time.Time               `db:"updated_at" json:"updated_at"`
}

// FromEnvelope snapshots an applied event into a cursor row
func FromEnvelope(envelope *types.WebhookEnvelope) *Cursor {
	return &Cursor{
		SubscriptionID:     envelope.SubscriptionID,
		LastEventID:        envelope.EventID,
		LastEventType:      envelope.EventType,
		LastEventCreatedAt: envelope.CreatedAt,
		UpdatedAt:          time.Now().UTC(),
	}
}
