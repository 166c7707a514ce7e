package webhookevent

import (
	"encoding/json"
	"time"

	"github.com/billsync/billsync/internal/types"
)

// WebhookEvent is one row of the append-only event log, keyed by the
// provider-assigned event id. The id is the system's dedup key; creation is the
// only way to register an event.
type WebhookEvent struct {
	EventID          string                   `db:"event_id" json:"event_id"`
	EventType        types.ProviderEventType  `db:"event_type" json:"event_type"`
	EventCreatedAt   time.Time                `db:"event_created_at" json:"event_created_at"`
	OrganizationID   string                   `db:"organization_id" json:"organization_id,omitempty"`
	SubscriptionID   string                   `db:"subscription_id" json:"subscription_id,omitempty"`
	Status           types.WebhookEventStatus `db:"status" json:"status"`
	ErrorMessage     string                   `db:"error_message" json:"error_message,omitempty"`
	Payload          json.RawMessage          `db:"payload" json:"payload"`
	DeliveryAttempts int                      `db:"delivery_attempts" json:"delivery_attempts"`
	ProcessedAt      *time.Time               `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time                `db:"updated_at" json:"updated_at"`
}

// FromEnvelope builds a new received event log row from a normalized envelope
func FromEnvelope(envelope *types.WebhookEnvelope) *WebhookEvent {
	now := time.Now().UTC()
	return &WebhookEvent{
		EventID:        envelope.EventID,
		EventType:      envelope.EventType,
		EventCreatedAt: envelope.CreatedAt,
		OrganizationID: envelope.OrganizationID,
		SubscriptionID: envelope.SubscriptionID,
		Status:         types.WebhookEventStatusReceived,
		Payload:        envelope.Payload,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ToEnvelope rebuilds the normalized envelope from a stored event log row.
// Used by the worker and the replay tool, which carry only the event id.
func (e *WebhookEvent) ToEnvelope() *types.WebhookEnvelope {
	return &types.WebhookEnvelope{
		EventID:        e.EventID,
		EventType:      e.EventType,
		CreatedAt:      e.EventCreatedAt,
		OrganizationID: e.OrganizationID,
		SubscriptionID: e.SubscriptionID,
		Payload:        e.Payload,
	}
}
