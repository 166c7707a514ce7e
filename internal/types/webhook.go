package types

import (
	"encoding/json"
	"time"
)

// ProviderEventType identifies the closed set of provider webhook event types the
// pipeline understands. Any other type is accepted, acknowledged and ignored.
type ProviderEventType string

const (
	EventTypeCheckoutCompleted       ProviderEventType = "checkout.session.completed"
	EventTypeSubscriptionCreated     ProviderEventType = "customer.subscription.created"
	EventTypeSubscriptionUpdated     ProviderEventType = "customer.subscription.updated"
	EventTypeSubscriptionDeleted     ProviderEventType = "customer.subscription.deleted"
	EventTypeInvoicePaymentSucceeded ProviderEventType = "invoice.payment_succeeded"
	EventTypeInvoicePaymentFailed    ProviderEventType = "invoice.payment_failed"
)

// eventPrecedence orders same-timestamp events for one subscription into their
// causal order. The provider stamps events created in the same tick with equal
// timestamps, so the type is the only remaining ordering signal.
var eventPrecedence = map[ProviderEventType]int{
	EventTypeCheckoutCompleted:       10,
	EventTypeSubscriptionCreated:     20,
	EventTypeSubscriptionUpdated:     30,
	EventTypeSubscriptionDeleted:     40,
	EventTypeInvoicePaymentSucceeded: 50,
	EventTypeInvoicePaymentFailed:    60,
}

// EventPrecedence returns the tie-break precedence for an event type.
// Unknown types get the lowest precedence.
func EventPrecedence(t ProviderEventType) int {
	return eventPrecedence[t]
}

// WebhookEventStatus tracks the lifecycle of a received provider event.
// received -> processing -> processed | failed | ignored_out_of_order
// Only failed is retryable.
type WebhookEventStatus string

const (
	WebhookEventStatusReceived   WebhookEventStatus = "received"
	WebhookEventStatusProcessing WebhookEventStatus = "processing"
	WebhookEventStatusProcessed  WebhookEventStatus = "processed"
	WebhookEventStatusFailed     WebhookEventStatus = "failed"
	WebhookEventStatusIgnored    WebhookEventStatus = "ignored_out_of_order"
)

// IsTerminal returns true for statuses that end the event lifecycle
func (s WebhookEventStatus) IsTerminal() bool {
	return s == WebhookEventStatusProcessed || s == WebhookEventStatusIgnored
}

// WebhookEnvelope is the normalized representation of a raw provider event.
// SubscriptionID is the ordering partition key; events without one bypass
// the ordering gate entirely.
type WebhookEnvelope struct {
	EventID        string            `json:"event_id"`
	EventType      ProviderEventType `json:"event_type"`
	CreatedAt      time.Time         `json:"created_at"`
	OrganizationID string            `json:"organization_id,omitempty"`
	SubscriptionID string            `json:"subscription_id,omitempty"`
	Payload        json.RawMessage   `json:"payload"`
}

// ProcessingJob is the queue payload for one accepted event. Only the event id
// travels on the queue; the payload is re-read from the event log at processing
// time to keep jobs small.
type ProcessingJob struct {
	EventID string `json:"event_id"`
}

// DeadLetter is the payload published to the dead letter topic once an event
// has exhausted its retry budget.
type DeadLetter struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}
